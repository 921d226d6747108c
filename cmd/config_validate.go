package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configValidateConsumer bool

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  "Parses the configuration file given with --config and reports every invalid setting.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			log.Error().Err(err).Msgf("%s Configuration is invalid.", redCross)
			return BeQuietError{}
		}
		if configValidateConsumer {
			if err := cfg.ValidateConsumer(); err != nil {
				log.Error().Err(err).Msgf("%s Configuration is invalid for the consumer.", redCross)
				return BeQuietError{}
			}
		}
		log.Info().Msgf("%s Configuration is valid.", greenCheck)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)

	configValidateCmd.Flags().BoolVar(&configValidateConsumer, "consumer", false,
		"also check the settings required by the consumer")
}
