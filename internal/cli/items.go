package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/catalog"
	"github.com/musicmoon/marketplace/internal/session"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "items", Short: "Catalog operations"}
	cmd.AddCommand(
		newItemsListCmd(app),
		newItemsShowCmd(app),
		newItemsCategoriesCmd(app),
		newItemsMintCmd(app),
		newItemsUpdateCmd(app),
		newItemsTransferCmd(app),
	)
	return cmd
}

func newItemsListCmd(app *App) *cobra.Command {
	var (
		scopeKind, scopeValue string
		params                catalog.FilterParams
		preset                string
		sortKey               string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items of a scope, filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if scopeKind == string(catalog.ScopeOwner) || scopeKind == string(catalog.ScopeCreator) {
				if scopeValue == "" {
					current, ok := app.Session.Current()
					if !ok {
						return errSignedOut
					}
					scopeValue = current.ID
				}
			}
			scope, err := catalog.ParseScope(scopeKind, scopeValue)
			if err != nil {
				return err
			}
			key, err := catalog.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			if params.Range, err = priceRange(cmd, preset, params.Range); err != nil {
				return err
			}
			if _, err := app.Engine.Load(cmd.Context(), scope); err != nil {
				return err
			}
			items, err := app.Engine.View(scope, params, key)
			if err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), items)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&scopeKind, "scope", string(catalog.ScopeAll), "Scope: all, category, owner or creator")
	flags.StringVar(&scopeValue, "value", "", "Scope value; owner and creator default to the current identity")
	flags.StringVarP(&params.Query, "query", "q", "", "Case-insensitive text search")
	flags.StringVarP(&params.Category, "category", "c", catalog.AnyCategory, "Only this category")
	flags.Float64Var(&params.Range.Min, "min", 0, "Minimum price")
	flags.Float64Var(&params.Range.Max, "max", 0, "Maximum price")
	flags.StringVar(&preset, "preset", "", "Price preset label, e.g. \"1 - 2\"")
	flags.StringVarP(&sortKey, "sort", "s", string(catalog.SortRecent), "Sort: recent, priceAsc or priceDesc")
	return cmd
}

// priceRange resolves the price flags. A preset wins over --min and --max;
// without either the range is unbounded.
func priceRange(cmd *cobra.Command, preset string, flags catalog.PriceRange) (catalog.PriceRange, error) {
	if preset != "" {
		for _, p := range catalog.PricePresets {
			if p.Label == preset {
				return p.Range, nil
			}
		}
		return catalog.PriceRange{}, fmt.Errorf("%w: unknown price preset %q", apperr.ErrValidationFailed, preset)
	}
	r := catalog.AnyPrice
	if cmd.Flags().Changed("min") {
		r.Min = flags.Min
	}
	if cmd.Flags().Changed("max") {
		r.Max = flags.Max
	}
	return r, r.Validate()
}

func newItemsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := app.Engine.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
}

func newItemsCategoriesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories present in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := app.Engine.Load(cmd.Context(), catalog.All())
			if err != nil {
				return err
			}
			for _, c := range catalog.DistinctCategories(items) {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newItemsMintCmd(app *App) *cobra.Command {
	var (
		in                   catalog.MintInput
		imagePath, audioPath string
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a new item owned by the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := require(app, session.ActionMint); err != nil {
				return err
			}
			current, _ := app.Session.Current()
			var err error
			if in.Image, err = readUpload(imagePath); err != nil {
				return err
			}
			if in.Audio, err = readUpload(audioPath); err != nil {
				return err
			}
			item, err := app.Catalog.Mint(cmd.Context(), current.ID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "minted %s (%s)\n", item.Title, item.ID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&in.Title, "title", "t", "", "Title (required)")
	flags.StringVarP(&in.Description, "description", "d", "", "Description (required)")
	flags.Float64VarP(&in.Price, "price", "p", 0, "Price (required)")
	flags.StringVarP(&in.Category, "category", "c", "", "One of "+strings.Join(catalog.Categories, ", "))
	flags.StringVar(&imagePath, "image", "", "Cover image file (required)")
	flags.StringVar(&audioPath, "audio", "", "Audio file (required)")
	for _, name := range []string{"title", "description", "price", "category", "image", "audio"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newItemsUpdateCmd(app *App) *cobra.Command {
	var (
		title, description, category, mintAddress string
		price                                     float64
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit an item owned by the current identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := require(app, session.ActionEdit); err != nil {
				return err
			}
			current, _ := app.Session.Current()
			var in catalog.UpdateInput
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = &title
			}
			if flags.Changed("description") {
				in.Description = &description
			}
			if flags.Changed("price") {
				in.Price = &price
			}
			if flags.Changed("category") {
				in.Category = &category
			}
			if flags.Changed("mint-address") {
				in.MintAddress = &mintAddress
			}
			item, err := app.Catalog.Update(cmd.Context(), current.ID, args[0], in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "Title")
	flags.StringVar(&description, "description", "", "Description")
	flags.Float64Var(&price, "price", 0, "Price")
	flags.StringVar(&category, "category", "", "Category")
	flags.StringVar(&mintAddress, "mint-address", "", "On-chain mint address, settable once")
	return cmd
}

func newItemsTransferCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer ID OWNER_ID",
		Short: "Hand an item over to another identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := require(app, session.ActionEdit); err != nil {
				return err
			}
			current, _ := app.Session.Current()
			item, err := app.Catalog.Transfer(cmd.Context(), current.ID, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now owned by %s\n", item.ID, item.OwnerID)
			return nil
		},
	}
}

func readUpload(path string) (catalog.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Upload{}, fmt.Errorf("%w: read %s: %v", apperr.ErrValidationFailed, path, err)
	}
	return catalog.Upload{Filename: filepath.Base(path), Data: data}, nil
}

func printItems(w io.Writer, items []catalog.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tCREATOR\tCREATED")
	for _, item := range items {
		creator, ok := item.CreatorName()
		if !ok {
			creator = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			item.ID, item.Title, item.Category, item.Price, creator, item.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}
