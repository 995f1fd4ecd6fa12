package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/incidentnow/agentproxy/pkg/env"
)

const (
	DefaultAgentName = "WriterAgentV2"
	DefaultTimeout   = 2 * time.Minute
)

// Config is the resolved configuration of the registration command.
type Config struct {
	ProjectEndpoint  string
	AgentName        string
	Model            string
	InstructionsFile string
	DefinitionFile   string
	SkipExisting     bool
	Timeout          time.Duration
	Verbose          bool
}

// BindFlags registers the command's flags on fs and binds them, together with
// their environment variables, to viper.
func BindFlags(fs *pflag.FlagSet) error {
	fs.String("name", DefaultAgentName, "Name of the agent to create")
	fs.String("model", env.AzureAIModelDeploymentName.DefaultValue(), "Model deployment the agent runs on (env "+env.AzureAIModelDeploymentName.Name()+")")
	fs.String("instructions-file", "", "Read the agent instructions from this file instead of the built-in writer instructions")
	fs.String("definition", "", "YAML agent definition (name, model, description, instructions, metadata); fields it sets override the flags")
	fs.Bool("skip-existing", false, "Do nothing if an agent with the same name already exists")
	fs.Duration("timeout", DefaultTimeout, "Timeout for the whole registration")
	fs.BoolP("verbose", "v", false, "Verbose output")

	for key, flag := range map[string]string{
		"name":              "name",
		"model":             "model",
		"instructions_file": "instructions-file",
		"definition_file":   "definition",
		"skip_existing":     "skip-existing",
		"timeout":           "timeout",
		"verbose":           "verbose",
	} {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	return viper.BindEnv("model", env.AzureAIModelDeploymentName.Name())
}

// Get reads the project endpoint from its environment variable and the rest
// from viper. A missing endpoint is reported as *env.MissingVarError.
func Get() (*Config, error) {
	endpoint, err := env.AzureAIProjectEndpoint.Require()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectEndpoint:  endpoint,
		AgentName:        viper.GetString("name"),
		Model:            viper.GetString("model"),
		InstructionsFile: viper.GetString("instructions_file"),
		DefinitionFile:   viper.GetString("definition_file"),
		SkipExisting:     viper.GetBool("skip_existing"),
		Timeout:          viper.GetDuration("timeout"),
		Verbose:          viper.GetBool("verbose"),
	}

	if cfg.AgentName == "" {
		cfg.AgentName = DefaultAgentName
	}
	if cfg.Model == "" {
		cfg.Model = env.AzureAIModelDeploymentName.DefaultValue()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}
