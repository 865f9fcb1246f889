package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/driver/host"
)

// DevicesOptions holds flags for the devices command.
type DevicesOptions struct {
	*RootOptions
	Backend string
	Type    string

	// Driver overrides the enumerated driver (for testing).
	Driver driver.Driver
}

// NewDevicesCommand creates the devices command.
func NewDevicesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevicesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List compute devices",
		Long: `List the devices of the host reference driver and the kernel
languages each accepts.

Examples:
  brahma devices
  brahma devices --backend glsl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "only devices accepting this backend")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only devices of this type (GPU|CPU|Accelerator)")

	return cmd
}

func runDevices(opts *DevicesOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	drv := opts.Driver
	if drv == nil {
		drv = host.New()
	}
	devices, err := drv.Enumerate(driver.Criteria{
		Backend: strings.ToLower(opts.Backend),
		Type:    driver.DeviceType(opts.Type),
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRuntimeFailed, err.Error(), nil)
	}
	if devices == nil {
		devices = []driver.Device{}
	}

	if formatter.JSON() {
		return formatter.Success(devices)
	}
	if len(devices) == 0 {
		fmt.Fprintln(formatter.Writer, "No matching devices.")
		return nil
	}
	for _, d := range devices {
		fmt.Fprintf(formatter.Writer, "%s  %s (%s, %s) [%s]\n", d.ID, d.Name, d.Type, d.Platform, strings.Join(d.Backends, ", "))
	}
	return nil
}
