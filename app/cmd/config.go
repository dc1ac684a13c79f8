package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lexcodex/codeagent/agents"
)

// newConfigCmd registers subcommands that inspect or mutate the config file.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or modify the config file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(), newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

// newConfigInitCmd writes the default configuration.
func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfgFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
			}
			if err := agents.SaveGlobalConfig(cfgFile, agents.DefaultGlobalConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// newConfigShowCmd prints the effective configuration, defaults included.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(globalCfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// newConfigGetCmd prints the value referenced by a dotted key. Keys absent
// from the file resolve against the effective configuration.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Read a config value by dotted key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, err := splitKey(args[0])
			if err != nil {
				return err
			}
			file, err := readConfigTree(cfgFile)
			if err != nil {
				return err
			}
			value, ok := file.get(parts)
			if !ok {
				effective, err := effectiveConfigTree()
				if err != nil {
					return err
				}
				if value, ok = effective.get(parts); !ok {
					return fmt.Errorf("key %s not found", args[0])
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderValue(value))
			return nil
		},
	}
}

// newConfigSetCmd updates a dotted key. Only keys the config defines may be
// set, apart from per-backend overrides, and the file must still load.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Update a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, err := splitKey(args[0])
			if err != nil {
				return err
			}
			if parts[0] != "backends" {
				effective, err := effectiveConfigTree()
				if err != nil {
					return err
				}
				if _, ok := effective.get(parts); !ok {
					return fmt.Errorf("unknown config key %s", args[0])
				}
			}
			file, err := readConfigTree(cfgFile)
			if err != nil {
				return err
			}
			if err := file.set(parts, parseValue(args[1])); err != nil {
				return err
			}
			if err := file.write(cfgFile); err != nil {
				return err
			}
			if _, err := agents.LoadGlobalConfig(cfgFile); err != nil {
				return fmt.Errorf("%s updated but no longer loads: %w", cfgFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	}
}

// effectiveConfigTree renders the loaded config, defaults included.
func effectiveConfigTree() (configTree, error) {
	out, err := yaml.Marshal(globalCfg)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{}
	if err := yaml.Unmarshal(out, &data); err != nil {
		return nil, err
	}
	return data, nil
}
