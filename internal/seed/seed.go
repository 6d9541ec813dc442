// Package seed loads the demo marketplace: a buyer, a seller admin with the "Demo Hardware"
// storefront and its building-materials catalog. Running it again updates the same rows.
package seed

import (
	"context"
	"errors"
	"log"

	"jengamart/internal/models"
	"jengamart/internal/repositories"
	"jengamart/internal/services"

	"github.com/shopspring/decimal"
)

// Demo credentials.
const (
	BuyerPhone    = "255700000001"
	SellerPhone   = "255700000002"
	DemoPassword  = "pass123"
	DemoStoreName = "Demo Hardware"
)

type demoProduct struct {
	Name        string
	Category    string
	Unit        string
	Price       int64
	Stock       int
	Brand       string
	Description string
	Image       string
}

var demoCatalog = []demoProduct{
	{"Cement Bag 50kg", "cement", "bag", 19000, 200, "Twiga Cement",
		"Portland cement suitable for structural works, supplied in moisture-proof bags.",
		"https://images.unsplash.com/photo-1582719478250-8a06aa17427a?auto=format&fit=crop&w=1200&q=80"},
	{"Iron Sheet (Gauge 30)", "steel", "piece", 25000, 80, "ALAF",
		"Zinc-coated roofing sheets, 30 gauge, cut-to-length with anti-rust protection.",
		"https://images.unsplash.com/photo-1517586979033-e4fc5edfc3b1?auto=format&fit=crop&w=1200&q=80"},
	{"Reinforcement Bar Y12", "rebar", "length", 14500, 450, "Kiboko Steel",
		"High tensile reinforcement bar, Y12 standard length, heat-number traceability available.",
		"https://images.unsplash.com/photo-1519710164239-da123dc03ef4?auto=format&fit=crop&w=1200&q=80"},
	{"Washed River Sand", "aggregates", "tonne", 35000, 120, "LMGa Quarry",
		"Clean river sand suitable for plastering and block works. Delivered with moisture control.",
		"https://images.unsplash.com/photo-1581847948721-5a9b93d107c4?auto=format&fit=crop&w=1200&q=80"},
	{"Concrete Vibrator Hire", "equipment", "day", 55000, 15, "Bosch Professional",
		"High-frequency concrete vibrators supplied with certified operators for in-situ pours.",
		"https://images.unsplash.com/photo-1489515217757-5fd1be406fef?auto=format&fit=crop&w=1200&q=80"},
	{"Gypsum Ceiling Boards", "finishes", "sheet", 22000, 300, "Gyproc",
		"12mm fire-rated gypsum boards with taped edges, ideal for commercial interiors.",
		"https://images.unsplash.com/photo-1582719478250-c89cae4dc85b?auto=format&fit=crop&w=1200&q=80"},
}

// Seeder writes the demo data through the repositories.
type Seeder struct {
	tx       repositories.TxManager
	users    repositories.UserRepository
	sellers  repositories.SellerRepository
	products repositories.ProductRepository
}

// NewSeeder creates a Seeder.
func NewSeeder(tx repositories.TxManager, users repositories.UserRepository, sellers repositories.SellerRepository, products repositories.ProductRepository) *Seeder {
	return &Seeder{tx: tx, users: users, sellers: sellers, products: products}
}

// Run seeds the demo data in one transaction and returns the demo seller.
func (s *Seeder) Run(ctx context.Context) (*models.Seller, error) {
	var seller *models.Seller
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.user(ctx, BuyerPhone, "Demo Buyer", models.RoleBuyer); err != nil {
			return err
		}
		owner, err := s.user(ctx, SellerPhone, "Demo Seller", models.RoleSellerAdmin)
		if err != nil {
			return err
		}
		seller, err = s.store(ctx, owner)
		if err != nil {
			return err
		}
		return s.catalog(ctx, seller.ID)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Seeded demo data: seller %s (%s) with %d products", seller.BusinessName, seller.ID, len(demoCatalog))
	return seller, nil
}

func (s *Seeder) user(ctx context.Context, phone, name string, role models.Role) (*models.User, error) {
	existing, err := s.users.GetByPhone(ctx, phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	hash, err := services.HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}
	user := &models.User{FullName: name, Phone: phone, Role: role, IsActive: true, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Seeder) store(ctx context.Context, owner *models.User) (*models.Seller, error) {
	owned, err := s.sellers.List(ctx, repositories.Scope{UserID: owner.ID})
	if err != nil {
		return nil, err
	}
	var seller *models.Seller
	for i := range owned {
		if owned[i].UserID == owner.ID {
			seller = &owned[i]
			break
		}
	}
	if seller == nil {
		// Dar es Salaam.
		seller = &models.Seller{
			UserID:         owner.ID,
			BusinessName:   DemoStoreName,
			Phone:          SellerPhone,
			PickupLocation: &models.GeoPoint{Lat: -6.817, Lng: 39.276},
		}
		if err := s.sellers.Create(ctx, seller); err != nil {
			return nil, err
		}
	}

	_, err = s.sellers.GetMembership(ctx, seller.ID, owner.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		err = s.sellers.AddMember(ctx, &models.Membership{SellerID: seller.ID, UserID: owner.ID, Role: models.MemberRoleAdmin})
	}
	if err != nil {
		return nil, err
	}
	return seller, nil
}

func (s *Seeder) catalog(ctx context.Context, sellerID string) error {
	existing, err := s.products.List(ctx, repositories.ProductQuery{SellerID: sellerID})
	if err != nil {
		return err
	}
	byName := make(map[string]*models.Product, len(existing))
	for i := range existing {
		byName[existing[i].Name] = &existing[i]
	}

	for _, d := range demoCatalog {
		brand, description := d.Brand, d.Description
		product, found := byName[d.Name]
		if !found {
			product = &models.Product{SellerID: sellerID, Name: d.Name}
		}
		product.Category = d.Category
		product.Unit = d.Unit
		product.Price = decimal.NewFromInt(d.Price)
		product.Stock = d.Stock
		product.Brand = &brand
		product.Description = &description
		product.Images = []string{d.Image}

		if found {
			err = s.products.Update(ctx, product)
		} else {
			err = s.products.Create(ctx, product)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
