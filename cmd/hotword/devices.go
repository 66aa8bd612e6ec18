package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hotword/internal/infra/audio"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices (requires -tags portaudio)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := audio.ListInputDevices()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DEFAULT\tNAME\tCHANNELS\tRATE")
			for _, d := range devices {
				def := ""
				if d.IsDefault {
					def = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\n", def, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
			}
			return w.Flush()
		},
	}
}
