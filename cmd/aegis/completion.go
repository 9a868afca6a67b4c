package main

import (
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

// completionGenerators writes the completion script of root for each
// supported shell. desc keeps command descriptions in the script.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer, desc bool) error{
	"bash": func(root *cobra.Command, w io.Writer, desc bool) error {
		return root.GenBashCompletionV2(w, desc)
	},
	"zsh": func(root *cobra.Command, w io.Writer, desc bool) error {
		if desc {
			return root.GenZshCompletion(w)
		}
		return root.GenZshCompletionNoDesc(w)
	},
	"fish": func(root *cobra.Command, w io.Writer, desc bool) error {
		return root.GenFishCompletion(w, desc)
	},
	"powershell": func(root *cobra.Command, w io.Writer, desc bool) error {
		if desc {
			return root.GenPowerShellCompletionWithDesc(w)
		}
		return root.GenPowerShellCompletion(w)
	},
}

var completionNoDesc bool

var completionCmd = &cobra.Command{
	Use:   "completion SHELL",
	Short: "Print a shell completion script",
	Long: `Print the completion script for bash, zsh, fish or powershell.

Load it for the current session:
  source <(aegis completion bash)
  aegis completion fish | source

Or install it once:
  aegis completion zsh > "${fpath[1]}/_aegis"
  aegis completion powershell >> $PROFILE`,
	ValidArgs: slices.Sorted(maps.Keys(completionGenerators)),
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := completionGenerators[args[0]]
		return gen(cmd.Root(), cmd.OutOrStdout(), !completionNoDesc)
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
	completionCmd.Flags().BoolVar(&completionNoDesc, "no-descriptions", false, "leave command descriptions out of the script")
}
