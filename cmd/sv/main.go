package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sharevault/internal/app"
	"sharevault/internal/config"
	"sharevault/internal/model"
	"sharevault/internal/sv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
		if kind := sv.KindOf(err); kind != sv.KindInternal {
			fmt.Fprintf(os.Stderr, "  %s %s\n", color.CyanString("→"), kind)
		}
		os.Exit(1)
	}
}

// newApp reads the config and creates an SVApp. The caller must defer
// a.Close(). operation names the CLI command being run.
func newApp(ctx context.Context, operation string) (*app.SVApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewSVApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// unlock prompts for the passphrase when the key protector needs one.
func unlock(a *app.SVApp) error {
	pass := ""
	if a.NeedsPassphrase() {
		p, err := passphrase(os.Stderr, "Passphrase: ", false)
		if err != nil {
			return err
		}
		pass = p
	}
	return a.Unlock(pass)
}

func caller(cmd *cobra.Command) (string, error) {
	as, _ := cmd.Flags().GetString("as")
	return app.ResolveIdentity(as)
}

func ok(format string, args ...any) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

var rootCmd = &cobra.Command{
	Use:           "sv",
	Short:         "Encrypted object store with per-object keys and sharing",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		ok("Configuration initialized at %s", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Printf("Next: %s\n", color.YellowString("sv keys setup"))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.Load(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Cipher:         %s\n", cfg.Store.Cipher)
		fmt.Printf("Erase:          %t\n", cfg.Store.Erase)
		fmt.Printf("Audit:          %t\n", cfg.Store.Audit)
		fmt.Printf("Vault:          %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		fmt.Printf("Database:       %s\n", cfg.Database.Type)
		fmt.Printf("Key protection: %s\n", cfg.KeyProtection.Type)
		fmt.Printf("Identity:       %s\n", cfg.Identity.Type)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the key pair protecting object keys",
}

var keysSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate and store the key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "keys setup")
		if err != nil {
			return err
		}
		defer a.Close()

		pass := ""
		if a.NeedsPassphrase() {
			if pass, err = passphrase(os.Stderr, "New passphrase: ", true); err != nil {
				return err
			}
		}
		if err := a.SetupKeys(pass); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}
		ok("Keys created")
		if pub, err := a.PublicKey(); err == nil {
			fmt.Printf("Public key: %s\n", pub)
		}
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the public key",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "keys show")
		if err != nil {
			return err
		}
		defer a.Close()

		pub, err := a.PublicKey()
		if err != nil {
			return err
		}
		fmt.Println(pub)
		return nil
	},
}

// put command
var putCmd = &cobra.Command{
	Use:   "put PATH",
	Short: "Encrypt and store file(s)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		owner, err := caller(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "put")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.PutFiles(cmd.Context(), owner, args[0], recursive)
		for _, r := range records {
			fmt.Printf("%s  %s\n", r.ID, r.Name)
		}
		if err != nil {
			return err
		}
		ok("Stored %d object(s)", len(records))
		return nil
	},
}

// get command
var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Decrypt an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		who, err := caller(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "get")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}

		if out == "-" {
			_, err := a.GetTo(cmd.Context(), who, args[0], os.Stdout)
			return err
		}
		path, err := a.GetToFile(cmd.Context(), who, args[0], out)
		if err != nil {
			return err
		}
		ok("Wrote %s", path)
		return nil
	},
}

// share command
var shareCmd = &cobra.Command{
	Use:   "share ID GRANTEE",
	Short: "Grant another identity read access",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		who, err := caller(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "share")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Share(cmd.Context(), who, args[0], args[1])
		if err != nil {
			return err
		}
		ok("Shared %s with %s", rec.Name, args[1])
		return nil
	},
}

// rm command
var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		who, err := caller(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "rm")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Delete(cmd.Context(), who, args[0]); err != nil {
			return err
		}
		ok("Deleted %s", args[0])
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List owned or shared objects",
	RunE: func(cmd *cobra.Command, args []string) error {
		shared, _ := cmd.Flags().GetBool("shared")
		who, err := caller(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "ls")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.List(cmd.Context(), who, shared)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No objects.")
			return nil
		}
		for _, r := range records {
			printRecord(r, shared)
		}
		return nil
	},
}

func printRecord(r *model.ObjectRecord, shared bool) {
	who := strings.Join(r.SharedWith, ",")
	if shared {
		who = "from " + r.Owner
	}
	fmt.Printf("%s  %8d  %s  %-30s  %s\n",
		r.ID,
		r.Size,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
		r.Name,
		color.HiBlackString(who),
	)
}

// recipient command
var recipientCmd = &cobra.Command{
	Use:   "recipient",
	Short: "Manage the age recipient exported keys are wrapped to",
}

var recipientSetCmd = &cobra.Command{
	Use:   "set AGE_PUBKEY",
	Short: "Register your age public key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		who, err := caller(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "recipient set")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RegisterRecipient(cmd.Context(), who, args[0]); err != nil {
			return err
		}
		ok("Recipient registered for %s", who)
		return nil
	},
}

// key command
var keyCmd = &cobra.Command{
	Use:   "key ID",
	Short: "Export an object key wrapped to your recipient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		who, err := caller(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "key")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}
		armored, err := a.SealedKey(cmd.Context(), who, args[0])
		if err != nil {
			return err
		}
		fmt.Print(armored)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "history")
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		for _, e := range events {
			outcome := color.GreenString(e.Outcome)
			if e.Outcome != "success" {
				outcome = color.RedString(e.Outcome)
			}
			fmt.Printf("#%d  %s  %-18s  %-10s  %-36s  %s  %s\n",
				e.ID,
				e.At.Format("2006-01-02 15:04:05"),
				e.Kind,
				e.Identity,
				e.ObjectID,
				outcome,
				e.ErrorKind,
			)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the metadata database",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a snapshot of the SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "db backup")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(cmd.Context(), args[0]); err != nil {
			return err
		}
		ok("Database written to %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("as", "", "Caller identity (default $"+app.EnvIdentity+")")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysSetupCmd)
	keysCmd.AddCommand(keysShowCmd)

	recipientCmd.AddCommand(recipientSetCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringP("output", "o", "", "Destination file or directory, - for stdout")
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().Bool("shared", false, "List objects shared with you instead of owned ones")
	rootCmd.AddCommand(recipientCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(dbCmd)
}
