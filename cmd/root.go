// Package cmd 命令行入口
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand 构建命令树，不带子命令运行时等同于 serve
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "fraudguard",
		Short:        "Credit card fraud inference service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.configPath)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "path to config.yaml (env CONFIG_PATH)")

	root.AddCommand(newServeCommand(opts), newArtifactCommand())
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

// Execute 执行根命令
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
