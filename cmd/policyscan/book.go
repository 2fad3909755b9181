package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"PolicyScan/internal/book"
	"PolicyScan/internal/calculator"
	"PolicyScan/internal/collector"
	"PolicyScan/internal/model"
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage the local policy book",
	Long:  "Commands for listing, adding, removing and importing policies in the local YAML policy book.",
}

func openBook() (*book.Manager, error) {
	if cfg.Book.Path == "" {
		return nil, eris.New("book.path is not configured")
	}
	return book.NewManager(cfg.Book.Path, cfg.Book.Owner)
}

// -- book list --

var bookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policies in the book",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := openBook()
		if err != nil {
			return err
		}
		policies, err := m.List()
		if err != nil {
			return eris.Wrap(err, "book list")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writePayloadsJSON(os.Stdout, policies)
		}
		if len(policies) == 0 {
			fmt.Fprintln(os.Stderr, "No policies in book.")
			return nil
		}
		if owner := m.Owner(); owner != "" {
			fmt.Fprintf(os.Stdout, "Owner: %s\n\n", owner)
		}
		formatPolicyList(os.Stdout, policies)
		return nil
	},
}

// writePayloadsJSON prints policies in the backend's JSON shape, so the output can be re-imported.
func writePayloadsJSON(w io.Writer, policies []model.PolicyRecord) error {
	payloads := make([]model.PolicyPayload, 0, len(policies))
	for _, p := range policies {
		payloads = append(payloads, model.PayloadFromRecord(p))
	}
	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return eris.Wrap(err, "book list: encode json")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func formatPolicyList(w io.Writer, policies []model.PolicyRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tPREMIUM\tCOVERAGE\tEXPIRY")
	for _, p := range policies {
		coverage := "-"
		if p.HasCoverage() {
			coverage = calculator.FormatAmount(p.Coverage.Decimal)
		}
		expiry := "-"
		if p.ExpiryDate != nil {
			expiry = p.ExpiryDate.Format(model.DateLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Category().Label(), calculator.FormatAmount(p.Premium), coverage, expiry)
	}
	fmt.Fprintf(tw, "\t\tTOTAL\t%s\t\t\n", calculator.FormatAmount(calculator.TotalPremium(policies)))
	tw.Flush() //nolint:errcheck
}

// -- book add --

var bookAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a policy to the book",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := payloadFromFlags(cmd)
		if err != nil {
			return err
		}
		m, err := openBook()
		if err != nil {
			return err
		}
		rec, err := m.Add(p)
		if err != nil {
			return eris.Wrap(err, "book add")
		}
		fmt.Fprintf(os.Stdout, "Added %s (%s)\n", rec.ID, rec.Category().Label())
		return nil
	},
}

func payloadFromFlags(cmd *cobra.Command) (model.PolicyPayload, error) {
	var p model.PolicyPayload
	p.ID, _ = cmd.Flags().GetString("id")
	p = applyFlags(cmd, p)
	if strings.TrimSpace(p.Type) == "" {
		return p, eris.New("book add: --type is required")
	}
	return p, nil
}

// -- book update --

var bookUpdateCmd = &cobra.Command{
	Use:   "update <policy-id>",
	Short: "Change fields of a policy in the book",
	Long:  "Only the flags given are changed; the other fields keep their current values.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openBook()
		if err != nil {
			return err
		}
		current, err := m.Get(args[0])
		if err != nil {
			return eris.Wrap(err, "book update")
		}
		p := applyFlags(cmd, model.PayloadFromRecord(current))
		if err := m.Update(p); err != nil {
			return eris.Wrap(err, "book update")
		}
		fmt.Fprintf(os.Stdout, "Updated %s\n", p.ID)
		return nil
	},
}

// applyFlags overwrites the fields of p whose flags were set on the command line.
func applyFlags(cmd *cobra.Command, p model.PolicyPayload) model.PolicyPayload {
	f := cmd.Flags()
	if f.Changed("name") {
		p.Name, _ = f.GetString("name")
	}
	if f.Changed("type") {
		p.Type, _ = f.GetString("type")
	}
	if f.Changed("premium") {
		p.Price, _ = f.GetFloat64("premium")
	}
	if f.Changed("coverage") {
		c, _ := f.GetFloat64("coverage")
		p.Coverage = &c
	}
	if f.Changed("start") {
		p.FromDate, _ = f.GetString("start")
	}
	if f.Changed("expiry") {
		p.ToDate, _ = f.GetString("expiry")
	}
	if f.Changed("term") {
		p.Term, _ = f.GetInt("term")
	}
	return p
}

// -- book remove --

var bookRemoveCmd = &cobra.Command{
	Use:   "remove <policy-id>",
	Short: "Remove a policy from the book",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		m, err := openBook()
		if err != nil {
			return err
		}
		if err := m.Remove(args[0]); err != nil {
			return eris.Wrap(err, "book remove")
		}
		fmt.Fprintf(os.Stdout, "Removed %s\n", args[0])
		return nil
	},
}

// -- book import --

var bookImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import policies from an .xlsx, .json or .yaml file",
	Long:  "Appends every policy in the file to the book. The import is rejected as a whole if any policy is invalid or duplicates an existing id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		payloads, err := readPayloads(args[0])
		if err != nil {
			return err
		}
		m, err := openBook()
		if err != nil {
			return err
		}
		added, err := m.Import(payloads)
		if err != nil {
			return eris.Wrap(err, "book import")
		}
		fmt.Fprintf(os.Stdout, "Imported %d policies\n", len(added))
		return nil
	},
}

// readPayloads loads policies from a file, choosing the decoder by extension.
// JSON files use the backend field names; YAML files use the book's.
func readPayloads(path string) ([]model.PolicyPayload, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return collector.ReadPayloadsXLSX(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var payloads []model.PolicyPayload
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &payloads); err != nil {
			return nil, eris.Wrapf(err, "decode %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &payloads); err != nil {
			return nil, eris.Wrapf(err, "decode %s", path)
		}
	default:
		return nil, eris.Errorf("unsupported import file type %q", ext)
	}
	return payloads, nil
}

func addPolicyFlags(c *cobra.Command) {
	f := c.Flags()
	f.String("name", "", "policy name")
	f.String("type", "", "policy type, e.g. health, life, auto, home, travel")
	f.Float64("premium", 0, "annual premium")
	f.Float64("coverage", 0, "sum insured")
	f.String("start", "", "start date (YYYY-MM-DD)")
	f.String("expiry", "", "expiry date (YYYY-MM-DD)")
	f.Int("term", 0, "term in years, used when --expiry is empty")
}

func init() {
	bookListCmd.Flags().Bool("json", false, "print policies as JSON")

	addPolicyFlags(bookAddCmd)
	addPolicyFlags(bookUpdateCmd)
	bookAddCmd.Flags().String("id", "", "policy id (generated when empty)")

	bookCmd.AddCommand(bookListCmd, bookAddCmd, bookUpdateCmd, bookRemoveCmd, bookImportCmd)
	rootCmd.AddCommand(bookCmd)
}
