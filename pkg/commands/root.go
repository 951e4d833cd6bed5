package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/beam-cloud/xtmsplit/pkg/xtm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "XTM"

// cfg holds flag values overlaid on XTM_* environment variables and the
// optional config file.
var cfg = viper.New()

var RootCmd = &cobra.Command{
	Use:               "xtm",
	Short:             "Split files into numbered .xtm parts and join them back",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.String("config", "", "Config file (yaml, toml or json)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error, disabled")
	flags.BoolP("verbose", "v", false, "Log every part and a metrics summary")
	flags.String("s3-region", "", "S3 region (defaults to AWS_REGION)")
	flags.String("s3-endpoint", "", "S3 compatible endpoint URL")
	flags.Bool("s3-force-path-style", false, "Use path style S3 addressing")
	flags.String("s3-access-key", "", "S3 access key (defaults to AWS_ACCESS_KEY_ID)")
	flags.String("s3-secret-key", "", "S3 secret key (defaults to AWS_SECRET_ACCESS_KEY)")

	RootCmd.AddCommand(SplitCmd, ExtractCmd, InfoCmd, ListCmd, VersionCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	if err := cfg.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if path := cfg.GetString("config"); path != "" {
		cfg.SetConfigFile(path)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config %s: %w", path, err)
		}
	}

	return xtm.SetLogLevel(cfg.GetString("log-level"))
}

func storageOptions() xtm.StorageOptions {
	region := cfg.GetString("s3-region")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	return xtm.StorageOptions{
		S3: common.S3StorageInfo{
			Region:         region,
			Endpoint:       cfg.GetString("s3-endpoint"),
			ForcePathStyle: cfg.GetBool("s3-force-path-style"),
		},
		Credentials: common.S3Credentials{
			AccessKey: cfg.GetString("s3-access-key"),
			SecretKey: cfg.GetString("s3-secret-key"),
		},
	}
}

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the creator name and format version written into headers",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", common.CreatorName, common.XtmVersion)
	},
}
