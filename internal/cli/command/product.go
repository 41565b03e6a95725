package command

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/prodadmin-go/internal/cli/output"
	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/core/service"
)

// ProductCommand returns the product subcommand group.
func ProductCommand() *cli.Command {
	return &cli.Command{
		Name:            "product",
		Aliases:         []string{"p"},
		Usage:           "Manage products",
		HideHelpCommand: true,
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List products",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "active-only",
						Aliases: []string{"a"},
						Usage:   "Only show active products",
					},
				},
				Action: productList,
			},
			{
				Name:      "get",
				Usage:     "Show one product",
				ArgsUsage: "ID",
				Action:    productGet,
			},
			{
				Name:   "create",
				Usage:  "Create a product",
				Flags:  productFormFlags(),
				Action: productCreate,
			},
			{
				Name:      "update",
				Usage:     "Replace the fields of a product",
				ArgsUsage: "ID",
				Flags:     productFormFlags(),
				Action:    productUpdate,
			},
			{
				Name:      "stock",
				Usage:     "Set the stock quantity of a product",
				ArgsUsage: "ID QUANTITY",
				Action:    productStock,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a product",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: productDelete,
			},
		},
	}
}

func productFormFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "name",
			Aliases:  []string{"n"},
			Usage:    "Product name",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "description",
			Aliases: []string{"d"},
			Usage:   "Product description",
		},
		&cli.Float64Flag{
			Name:     "price",
			Usage:    "Unit price",
			Required: true,
		},
		&cli.IntFlag{
			Name:     "quantity",
			Aliases:  []string{"q"},
			Usage:    "Stock quantity",
			Required: true,
		},
	}
}

// products returns the product service of an authenticated session.
func products(c *cli.Context) (*Runtime, *service.ProductService, error) {
	rt, err := runtimeFrom(c)
	if err != nil {
		return nil, nil, err
	}
	if _, err := rt.Session(c.Context); err != nil {
		return nil, nil, err
	}
	return rt, rt.Products, nil
}

func productList(c *cli.Context) error {
	rt, svc, err := products(c)
	if err != nil {
		return err
	}

	list, err := svc.List(c.Context, c.Bool("active-only"))
	if err != nil {
		return err
	}
	if len(list) == 0 && rt.Format == output.FormatTable {
		fmt.Fprintln(rt.Out, "No products found.")
		return nil
	}
	return rt.Render(list)
}

func productGet(c *cli.Context) error {
	id, err := parseID(c.Args().First())
	if err != nil {
		return err
	}
	rt, svc, err := products(c)
	if err != nil {
		return err
	}

	p, err := svc.Get(c.Context, id)
	if err != nil {
		return err
	}
	return rt.Render(p)
}

func productCreate(c *cli.Context) error {
	rt, svc, err := products(c)
	if err != nil {
		return err
	}

	spin := output.NewSpinner(rt.Err, "Creating product...")
	spin.Start()
	p, err := svc.Create(c.Context, formInput(c))
	if err != nil {
		spin.Fail("Create failed")
		return err
	}
	spin.Success(fmt.Sprintf("Product %d created.", p.ID))
	return rt.Render(p)
}

func productUpdate(c *cli.Context) error {
	id, err := parseID(c.Args().First())
	if err != nil {
		return err
	}
	rt, svc, err := products(c)
	if err != nil {
		return err
	}

	spin := output.NewSpinner(rt.Err, "Updating product...")
	spin.Start()
	p, err := svc.Update(c.Context, id, formInput(c))
	if err != nil {
		spin.Fail("Update failed")
		return err
	}
	spin.Success(fmt.Sprintf("Product %d updated.", p.ID))
	return rt.Render(p)
}

func productStock(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: product stock ID QUANTITY")
	}
	id, err := parseID(c.Args().Get(0))
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return domain.ErrInvalidInput.WithDetails(fmt.Sprintf("quantity %q is not a number", c.Args().Get(1)))
	}
	rt, svc, err := products(c)
	if err != nil {
		return err
	}

	p, err := svc.UpdateStock(c.Context, id, qty)
	if err != nil {
		return err
	}
	return rt.Render(p)
}

func productDelete(c *cli.Context) error {
	id, err := parseID(c.Args().First())
	if err != nil {
		return err
	}
	rt, svc, err := products(c)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		fmt.Fprintf(rt.Err, "Are you sure you want to delete product %d? [y/N]: ", id)
		answer, err := promptLine(bufio.NewReader(rt.In), rt.Err, "")
		if err != nil {
			return err
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			fmt.Fprintln(rt.Out, "Cancelled.")
			return nil
		}
	}

	if err := svc.Delete(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Product %d deleted.\n", id)
	return nil
}

func formInput(c *cli.Context) domain.ProductInput {
	return domain.ProductInput{
		Name:        c.String("name"),
		Description: c.String("description"),
		Price:       c.Float64("price"),
		Quantity:    c.Int("quantity"),
	}
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, domain.ErrInvalidInput.WithDetails("product ID required")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidInput.WithDetails(fmt.Sprintf("product ID %q must be a positive number", s))
	}
	return id, nil
}
