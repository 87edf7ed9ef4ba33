package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sprucekit/spruce/internal/inventory"
)

// Version is the tool version reported in the interchange document.
const Version = "2.0.3"

var (
	flagPackages       bool
	flagScripts        bool
	flagPolicies       bool
	flagComputerGroups bool
	flagMobileGroups   bool
	flagComputerProfs  bool
	flagMobileProfs    bool
	flagMobileApps     bool
	flagComputers      bool
	flagMobileDevices  bool
	flagAll            bool

	flagOutFile  string
	flagRemove   string
	flagClean    bool
	flagPrefs    string
	flagVerbose  bool
	flagLogLevel string
	flagYes      bool

	// RootCmd is the spruce command.
	RootCmd = &cobra.Command{
		Use:   "spruce",
		Short: "Find and remove unused objects on a Jamf server",
		Long: `Spruce audits a Jamf server's inventory for cruft: unused packages,
scripts, policies, and profiles, empty or unscoped groups, superseded
package versions, and stale computers and mobile devices.

The recommended workflow is to run the reports you find interesting,
then output a report with -o/--ofile, edit the file down to the things
you actually want gone, and pass it back with --remove. Every type is
confirmed separately before anything is deleted.

Reports go to stdout by default. With no report flags, all reports run.

Examples:
  # Report on everything
  spruce

  # Only unused packages and scripts
  spruce -p -s

  # Write an editable report file
  spruce -a -o report.xml

  # Remove what is left in the edited file
  spruce --remove report.xml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
)

func init() {
	flags := RootCmd.Flags()
	flags.BoolVarP(&flagPackages, "packages", "p", false, "report on unused packages")
	flags.BoolVarP(&flagScripts, "scripts", "s", false, "report on unused scripts")
	flags.BoolVarP(&flagPolicies, "policies", "l", false, "report on unscoped policies")
	flags.BoolVarP(&flagComputerGroups, "computer-groups", "g", false, "report on unused or empty computer groups")
	flags.BoolVarP(&flagMobileGroups, "mobile-device-groups", "r", false, "report on unused or empty mobile device groups")
	flags.BoolVarP(&flagComputerProfs, "computer-profiles", "c", false, "report on unused computer configuration profiles")
	flags.BoolVarP(&flagMobileProfs, "mobile-profiles", "m", false, "report on unused mobile device configuration profiles")
	flags.BoolVarP(&flagMobileApps, "mobile-apps", "b", false, "report on unused mobile applications")
	flags.BoolVarP(&flagComputers, "computers", "u", false, "report on stale computers")
	flags.BoolVarP(&flagMobileDevices, "mobile-devices", "d", false, "report on stale mobile devices")
	flags.BoolVarP(&flagAll, "all", "a", false, "run every report (the default when no report flag is given)")

	flags.StringVarP(&flagOutFile, "ofile", "o", "", "write the report to FILE as an interchange document instead of stdout")
	flags.StringVar(&flagRemove, "remove", "", "remove the objects listed in FILE (mutually exclusive with reporting)")
	flags.BoolVar(&flagClean, "clean", false, "report, then prompt to remove everything flagged")
	flags.StringVar(&flagPrefs, "prefs", "", "path to the preferences file")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "also list in-use objects in text reports")
	flags.StringVar(&flagLogLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.BoolVarP(&flagYes, "yes", "y", false, "answer yes to every confirmation prompt")
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument %q", args[0])
	}
	if flagRemove != "" {
		if anyReportFlag() || flagOutFile != "" || flagClean {
			return errors.New("--remove cannot be combined with report flags, --ofile, or --clean")
		}
		return runRemove(cmd.Context(), flagRemove)
	}
	if flagClean && flagOutFile != "" {
		return errors.New("--clean and --ofile cannot be combined")
	}
	return runReport(cmd.Context())
}

func anyReportFlag() bool {
	return flagPackages || flagScripts || flagPolicies || flagComputerGroups ||
		flagMobileGroups || flagComputerProfs || flagMobileProfs ||
		flagMobileApps || flagComputers || flagMobileDevices || flagAll
}

// requestedTypes maps the report flags onto object types; no flags
// means everything, matching the historical default.
func requestedTypes() []inventory.ObjectType {
	if flagAll || !anyReportFlag() {
		return inventory.AllTypes()
	}
	selected := []struct {
		on bool
		t  inventory.ObjectType
	}{
		{flagComputers, inventory.TypeComputer},
		{flagComputerGroups, inventory.TypeComputerGroup},
		{flagPackages, inventory.TypePackage},
		{flagScripts, inventory.TypeScript},
		{flagPolicies, inventory.TypePolicy},
		{flagComputerProfs, inventory.TypeComputerConfigurationProfile},
		{flagMobileDevices, inventory.TypeMobileDevice},
		{flagMobileGroups, inventory.TypeMobileDeviceGroup},
		{flagMobileProfs, inventory.TypeMobileDeviceConfigurationProfile},
		{flagMobileApps, inventory.TypeMobileApplication},
	}
	var types []inventory.ObjectType
	for _, s := range selected {
		if s.on {
			types = append(types, s.t)
		}
	}
	return types
}

func localUser() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return "unknown"
}
