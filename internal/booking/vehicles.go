package booking

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/urbandrive/web-go/internal/gateway"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

const allCategories = "todas"

// VehicleFilter is the query of the vehicle listing. Nil prices mean no bound.
type VehicleFilter struct {
	Category      string
	Transmissions []string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}

// ParseVehicleFilter reads categoria, repeated transmision, precioMin and
// precioMax. Unparseable prices are ignored.
func ParseVehicleFilter(q url.Values) VehicleFilter {
	f := VehicleFilter{Category: strings.TrimSpace(q.Get("categoria"))}
	if f.Category == "" {
		f.Category = allCategories
	}
	for _, t := range q["transmision"] {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			f.Transmissions = append(f.Transmissions, t)
		}
	}
	f.MinPrice = parsePrice(q.Get("precioMin"))
	f.MaxPrice = parsePrice(q.Get("precioMax"))
	return f
}

func parsePrice(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return nil
	}
	return &d
}

func (f VehicleFilter) Selected(code string) bool {
	for _, t := range f.Transmissions {
		if t == code {
			return true
		}
	}
	return false
}

type VehicleListing struct {
	Vehicles      []rental.Vehicle
	Categories    []rental.Category
	Transmissions []rental.Transmission
	Filter        VehicleFilter
}

// ListVehicles loads vehicles and transmissions concurrently. Categories are
// derived from the unfiltered vehicles so every option stays visible.
func (s *Service) ListVehicles(ctx context.Context, f VehicleFilter) (VehicleListing, error) {
	var (
		vehicles      []rental.Vehicle
		transmissions []rental.Transmission
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vehicles, err = s.backend.Vehicles(gctx)
		return err
	})
	g.Go(func() error {
		transmissions = s.backend.Transmissions(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return VehicleListing{Filter: f}, err
	}

	return VehicleListing{
		Vehicles:      FilterVehicles(vehicles, f),
		Categories:    gateway.CategoriesOf(vehicles, true),
		Transmissions: transmissions,
		Filter:        f,
	}, nil
}

// FilterVehicles applies category, then transmission, then price bounds.
func FilterVehicles(vehicles []rental.Vehicle, f VehicleFilter) []rental.Vehicle {
	out := make([]rental.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if f.Category != "" && f.Category != allCategories && f.Category != strconv.Itoa(v.CategoryID) {
			continue
		}
		if len(f.Transmissions) > 0 && !f.Selected(v.TransmissionCode) {
			continue
		}
		if f.MinPrice != nil && v.DailyRate.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && v.DailyRate.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *Service) Vehicle(ctx context.Context, id int) (rental.Vehicle, error) {
	return s.backend.Vehicle(ctx, id)
}
