package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/voip8pbx/ShieldHire-sub000/cmd/shieldapi/cmd/profiles"
	"github.com/voip8pbx/ShieldHire-sub000/cmd/shieldapi/cmd/users"
	"github.com/voip8pbx/ShieldHire-sub000/internal/config"
	"github.com/voip8pbx/ShieldHire-sub000/internal/logging"
)

var (
	cfg    *config.Config
	logger *logrus.Logger

	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "shieldapi",
	Short: "ShieldHire API server",
	Long: `ShieldHire API server resolves bearer credentials from several identity
providers to one application principal and serves the emergency alert API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = logging.New(cfg)
		return nil
	},
}

// loadEnvFile loads KEY=VALUE pairs into the environment without
// overriding variables that are already set. A missing default file is fine.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML/TOML/JSON config file")
	flags.StringVar(&envFile, "env-file", "", "Path to a dotenv file (default .env when present)")
	flags.String("db-url", "", "Database connection URL (env: SHIELD_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: SHIELD_SERVER_ADDR)")
	flags.Bool("debug", false, "Enable debug logging (env: SHIELD_DEBUG)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", flags.Lookup("server-addr"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(profiles.ProfilesCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
