package main

import (
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"storefront/cmd/shop/ui"
	"storefront/internal/api"
	"storefront/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	productSearch   string
	productCategory string
	profileName     string
	profileEmail    string
)

// productsCmd browses the catalog
var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Browse the catalog",
	Long: `Browse the product catalog.

Subcommands:
  list  - List products, optionally filtered
  show  - Show one product with its description`,
	RunE: runProductsList,
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Args:  cobra.NoArgs,
	RunE:  runProductsList,
}

var productsShowCmd = &cobra.Command{
	Use:   "show <product-id>",
	Short: "Show a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsShow,
}

// ordersCmd prints the order history
var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Show your order history",
	Args:  cobra.NoArgs,
	RunE:  runOrders,
}

// profileCmd shows or edits the account profile
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
	RunE:  runProfileShow,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update name and email",
	Long: `Update the profile name and email. Omitted flags keep the current value.`,
	Args: cobra.NoArgs,
	RunE: runProfileUpdate,
}

func init() {
	for _, c := range []*cobra.Command{productsCmd, productsListCmd} {
		c.Flags().StringVarP(&productSearch, "search", "s", "", "Search term")
		c.Flags().StringVar(&productCategory, "category", "", "Category (electronics, clothing, books, home)")
	}
	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsShowCmd)

	profileUpdateCmd.Flags().StringVar(&profileName, "name", "", "New display name")
	profileUpdateCmd.Flags().StringVar(&profileEmail, "email", "", "New email")
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
}

func runProductsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	products, err := svc.Products(ctx, types.ProductFilter{Search: productSearch, Category: productCategory})
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(products) == 0 {
		fmt.Fprintln(out, "No products found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tCATEGORY\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, types.FormatMoney(p.Price), p.Category, stockLabel(p))
	}
	return w.Flush()
}

func stockLabel(p types.Product) string {
	if !p.InStock() {
		return "Out of Stock"
	}
	return fmt.Sprintf("%d in stock", p.Stock)
}

func runProductsShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	p, err := svc.Product(ctx, args[0])
	if api.StatusOf(err) == http.StatusNotFound {
		return fmt.Errorf("product not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n%s  %s  %s\n", p.Name, types.FormatMoney(p.Price), p.Category, stockLabel(p))
	if p.Description == "" {
		return nil
	}
	desc, err := glamour.Render(p.Description, "notty")
	if err != nil {
		desc = p.Description + "\n"
	}
	fmt.Fprint(out, desc)
	return nil
}

func runOrders(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	orders, err := svc.Orders(ctx)
	if err != nil {
		return sessionError(err)
	}
	out := cmd.OutOrStdout()
	if len(orders) == 0 {
		fmt.Fprintln(out, "No Orders Yet")
		return nil
	}
	for _, o := range orders {
		fmt.Fprintf(out, "Order #%s  [%s:%s]  %s\n", o.ID, o.Status, ui.StatusColorName(o.Status), o.CreatedAt.Format("2006-01-02"))
		for _, it := range o.Items {
			fmt.Fprintf(out, "  %s  Quantity: %d  Subtotal: %s\n", it.Product.Name, it.Quantity, types.FormatMoney(it.Subtotal()))
		}
		fmt.Fprintf(out, "  Total: %s\n", types.FormatMoney(o.Total))
	}
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	u, err := svc.CurrentUser(ctx)
	if err != nil {
		return sessionError(err)
	}
	printUser(cmd, u)
	return nil
}

func runProfileUpdate(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	current, err := svc.CurrentUser(ctx)
	if err != nil {
		return sessionError(err)
	}
	upd := types.ProfileUpdate{Name: current.Name, Email: current.Email}
	if cmd.Flags().Changed("name") {
		upd.Name = profileName
	}
	if cmd.Flags().Changed("email") {
		upd.Email = profileEmail
	}
	if strings.TrimSpace(upd.Name) == "" || strings.TrimSpace(upd.Email) == "" {
		return fmt.Errorf("name and email must not be empty")
	}

	u, err := svc.UpdateProfile(ctx, upd)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", sessionError(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Profile updated")
	printUser(cmd, u)
	return nil
}

func printUser(cmd *cobra.Command, u types.User) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:   %s\n", u.Name)
	fmt.Fprintf(out, "Email:  %s\n", u.Email)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Member since %s\n", u.CreatedAt.Format("January 2006"))
	}
}
