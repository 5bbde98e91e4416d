package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	splunkURL    string
	outputFormat string
	verbose      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "searchml",
	Short: "Evaluate predictors against data held in a search service",
	Long: `searchml trains pluggable predictors on events matched by a search query,
streams a held-out test query through them page by page, and reports a single
accuracy or error statistic.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.searchml/config)")
	rootCmd.PersistentFlags().StringVar(&splunkURL, "splunk", "", "Splunk management URL (default from config or https://localhost:8089)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress and diagnostics to stderr")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".searchml")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// Bind specific environment variables
	viper.BindEnv("splunk_url", "SPLUNK_URL")
	viper.BindEnv("splunk_username", "SPLUNK_USERNAME")
	viper.BindEnv("splunk_password", "SPLUNK_PASSWORD")
	viper.BindEnv("voyage_api_key", "VOYAGEAI_API_KEY")
	viper.BindEnv("pinecone_api_key", "PINECONE_API_KEY")
	viper.BindEnv("pinecone_host", "PINECONE_HOST")
	viper.BindEnv("pinecone_namespace", "PINECONE_NAMESPACE")

	// Config file is optional
	_ = viper.ReadInConfig()

	if splunkURL == "" {
		splunkURL = viper.GetString("splunk_url")
	}
	if splunkURL == "" {
		splunkURL = "https://localhost:8089"
	}
}
