package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/shelfbot/internal/config"
	"github.com/kalambet/shelfbot/internal/present"
	"github.com/kalambet/shelfbot/internal/search"
	"github.com/kalambet/shelfbot/internal/storage"
)

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the local catalog by title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		if page < 1 {
			return fmt.Errorf("--page must be at least 1")
		}

		return withShelf(func(sh *shelf) error {
			res := sh.search.Search(cmd.Context(), strings.Join(args, " "), page)
			printResult(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().Int("page", 1, "1-indexed result page")
}

func printResult(w io.Writer, res search.Result) {
	if res.Empty() {
		fmt.Fprintln(w, "No results found.")
		return
	}
	offset := (res.Page - 1) * res.PageSize
	for i, e := range res.Entries {
		fmt.Fprintf(w, "%s %s\n     %s\n",
			colorize(colorBold, fmt.Sprintf("%3d.", offset+i+1)),
			e.Title,
			colorize(colorCyan, present.DeepLink(e.Source)),
		)
	}
	fmt.Fprintf(w, "\nPage %d/%d, %d result(s)\n", res.Page, res.TotalPages, res.TotalCount)
}

// --- ads ---

var adSchemes = map[string]bool{"http": true, "https": true, "tg": true}

var adsCmd = &cobra.Command{
	Use:   "ads",
	Short: "Manage advertisements shown under search results",
}

var adsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active advertisements",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShelf(func(sh *shelf) error {
			printAds(cmd.OutOrStdout(), sh.catalog.ListActiveAdvertisements())
			return nil
		})
	},
}

var adsAddCmd = &cobra.Command{
	Use:   "add <text> <url>",
	Short: "Add an advertisement",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[:len(args)-1], " ")
		link := args[len(args)-1]
		if !validAdURL(link) {
			return fmt.Errorf("invalid advertisement url %q", link)
		}
		return withShelf(func(sh *shelf) error {
			ad, ok := sh.catalog.AddAdvertisement(text, link)
			if !ok {
				return fmt.Errorf("could not add advertisement")
			}
			printSuccess("Added advertisement %d", ad.ID)
			return nil
		})
	},
}

var adsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Deactivate an advertisement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id < 1 {
			return fmt.Errorf("invalid advertisement id %q", args[0])
		}
		return withShelf(func(sh *shelf) error {
			if !sh.catalog.DeactivateAdvertisement(id) {
				return fmt.Errorf("advertisement %d not found", id)
			}
			printSuccess("Removed advertisement %d", id)
			return nil
		})
	},
}

func init() {
	adsCmd.AddCommand(adsListCmd)
	adsCmd.AddCommand(adsAddCmd)
	adsCmd.AddCommand(adsRemoveCmd)
}

func validAdURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !adSchemes[strings.ToLower(u.Scheme)] {
		return false
	}
	return u.Host != "" || u.Scheme == "tg"
}

func printAds(w io.Writer, ads []storage.Advertisement) {
	if len(ads) == 0 {
		fmt.Fprintln(w, "No active advertisements.")
		return
	}
	for _, ad := range ads {
		fmt.Fprintf(w, "%s  %s  %s\n", colorize(colorCyan, fmt.Sprintf("#%d", ad.ID)), ad.Text, ad.URL)
	}
}

// --- helptext ---

var helpTextCmd = &cobra.Command{
	Use:   "helptext",
	Short: "Show or replace the bot's welcome message",
}

var helpTextShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current welcome message (HTML)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShelf(func(sh *shelf) error {
			fmt.Fprintln(cmd.OutOrStdout(), sh.catalog.HelpMessage())
			return nil
		})
	},
}

var helpTextSetCmd = &cobra.Command{
	Use:   "set <html>",
	Short: "Replace the welcome message",
	Long: `Replace the welcome message. The text is HTML; "@:name" is written
as "@name" so mentions survive shells and chat clients that expand "@".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return withShelf(func(sh *shelf) error {
			if !sh.catalog.SetHelpMessage(text) {
				return fmt.Errorf("could not update the welcome message")
			}
			printSuccess("Welcome message updated")
			return nil
		})
	},
}

func init() {
	helpTextCmd.AddCommand(helpTextShowCmd)
	helpTextCmd.AddCommand(helpTextSetCmd)
}

// withShelf opens the local shelf for the duration of fn.
func withShelf(fn func(sh *shelf) error) error {
	cfg, log, err := loadCLI()
	if err != nil {
		return err
	}
	sh, err := openShelf(cfg, nil, log)
	if err != nil {
		return err
	}
	defer sh.Close()
	return fn(sh)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "file:"), config.Path())
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
