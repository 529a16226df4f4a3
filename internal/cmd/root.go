package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`
		webcapd accepts requests to capture web pages (screenshots and/or
		serialized HTML) and processes them asynchronously against a pool of
		remote headless browsers reached over the Chrome DevTools Protocol.`)

	rootExamples = templates.Examples(`
		# Start the dispatch service
		webcapd serve --config webcapd.yaml`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// WebcapdOptions defines the options shared across subcommands.
type WebcapdOptions struct {
	iooption.IOStreams
}

// NewWebcapdOptions provides an initialised WebcapdOptions instance.
func NewWebcapdOptions(streams iooption.IOStreams) *WebcapdOptions {
	return &WebcapdOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `webcapd` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewWebcapdOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `webcapd` command and its nested
// children.
func NewRootCommandWithArgs(o *WebcapdOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "webcapd [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Asynchronous web-page capture dispatch service",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	cmd.AddCommand(NewServeCommand(NewServeOptions()))
	cmd.AddCommand(NewCaptureCommand(NewCaptureOptions(o.IOStreams)))

	// The global normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
