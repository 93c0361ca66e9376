package gateway

import (
	"context"
	"strconv"

	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/soap"
)

func (g *Gateway) Vehicles(ctx context.Context) ([]rental.Vehicle, error) {
	res, err := g.call(ctx, g.vehicles, "obtenerVehiculos")
	if err != nil {
		return nil, err
	}
	items := res.Items(itemVehicle)
	out := make([]rental.Vehicle, 0, len(items))
	for _, n := range items {
		out = append(out, vehicleFrom(n))
	}
	return out, nil
}

func (g *Gateway) Vehicle(ctx context.Context, id int) (rental.Vehicle, error) {
	res, err := g.call(ctx, g.vehicles, "obtenerVehiculoPorId", soap.P("idVehiculo", id))
	if err != nil {
		return rental.Vehicle{}, err
	}
	if res.Empty() {
		return rental.Vehicle{}, notFound("gateway.Vehicle")
	}
	v := vehicleFrom(res)
	if v.ID == 0 {
		v.ID = id
	}
	return v, nil
}

// Categories lists vehicle categories. When the category service fails the
// list is derived from the vehicles themselves; if that fails too the result
// is empty.
func (g *Gateway) Categories(ctx context.Context) []rental.Category {
	res, err := g.call(ctx, g.categories, "obtenerCategoriasVehiculo")
	if err == nil {
		var out []rental.Category
		for _, n := range res.Items(itemCategory) {
			out = append(out, categoryFrom(n))
		}
		return out
	}

	vehicles, err := g.Vehicles(ctx)
	if err != nil {
		return nil
	}
	return CategoriesOf(vehicles, false)
}

// CategoriesOf returns the distinct categories of vehicles in first-seen
// order. Vehicles without a category id are skipped. Unnamed categories are
// skipped unless placeholder is set, in which case they are named after
// their id.
func CategoriesOf(vehicles []rental.Vehicle, placeholder bool) []rental.Category {
	seen := make(map[int]bool)
	var out []rental.Category
	for _, v := range vehicles {
		if v.CategoryID == 0 || seen[v.CategoryID] {
			continue
		}
		name := v.CategoryName
		if name == "" {
			if !placeholder {
				continue
			}
			name = "Categoria " + strconv.Itoa(v.CategoryID)
		}
		seen[v.CategoryID] = true
		out = append(out, rental.Category{ID: v.CategoryID, Name: name})
	}
	return out
}

// Branches is empty when the branch service fails.
func (g *Gateway) Branches(ctx context.Context) []rental.Branch {
	res, err := g.call(ctx, g.branches, "obtenerSucursales")
	if err != nil {
		return nil
	}
	var out []rental.Branch
	for _, n := range res.Items(itemBranch) {
		out = append(out, branchFrom(n))
	}
	return out
}

// Promotions is empty when the promotion service fails.
func (g *Gateway) Promotions(ctx context.Context) []rental.Promotion {
	res, err := g.call(ctx, g.promotions, "ObtenerPromociones")
	if err != nil {
		return nil
	}
	var out []rental.Promotion
	for _, n := range res.Items(itemPromotion) {
		out = append(out, promotionFrom(n))
	}
	return out
}

// Transmissions never calls the backend.
func (g *Gateway) Transmissions(context.Context) []rental.Transmission {
	out := make([]rental.Transmission, len(rental.Transmissions))
	copy(out, rental.Transmissions)
	return out
}
