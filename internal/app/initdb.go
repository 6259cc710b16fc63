package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/talkincode/toughshop/internal/catalog"
	"github.com/talkincode/toughshop/internal/domain"
	"github.com/talkincode/toughshop/pkg/common"
	"go.uber.org/zap"
)

const defaultAdminEmail = "admin@toughshop.local"

// checkAdmin makes sure the default administrator exists and still holds the admin role
func (a *Application) checkAdmin() {
	ctx := context.Background()
	user, err := a.users.FindByEmail(ctx, defaultAdminEmail)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		admin := &domain.User{
			ID:    common.UUIDint64(),
			Name:  "administrator",
			Email: defaultAdminEmail,
			Role:  domain.RoleAdmin,
		}
		if err := a.users.Create(ctx, admin); err != nil {
			zap.L().Error("failed to create default admin", zap.Error(err))
			return
		}
		zap.L().Info("initialized default admin account",
			zap.String("email", defaultAdminEmail),
			zap.Int64("id", admin.ID))
		return
	case err != nil:
		zap.L().Error("failed to query default admin", zap.Error(err))
		return
	}

	if user.IsAdmin() {
		return
	}
	if err := a.users.SetRole(ctx, user.ID, domain.RoleAdmin); err != nil {
		zap.L().Error("failed to repair default admin account", zap.Error(err))
		return
	}
	zap.L().Warn("repaired default admin account", zap.String("email", defaultAdminEmail))
}

type demoProduct struct {
	name, description, price, category string
}

var demoProducts = []demoProduct{
	{"Classic Straight Jeans", "Mid-rise straight leg denim in indigo", "59.90", "jeans"},
	{"Organic Crew Tee", "Soft organic cotton t-shirt", "19.00", "t-shirts"},
	{"Trail Runner", "Lightweight running shoe with grippy sole", "89.00", "shoes"},
	{"Round Sunglasses", "Polarized lenses, acetate frame", "45.00", "glasses"},
	{"Quilted Jacket", "Water-repellent quilted jacket", "120.00", "jackets"},
	{"Leather Backpack", "Full-grain leather, fits a 15 inch laptop", "150.00", "bags"},
	{"Pocket Camera", "Compact camera with 4K video", "399.00", "cameras"},
	{"Handheld Console", "Portable gaming console with OLED screen", "349.00", "Gaming consoles"},
}

// checkDemoProducts seeds an empty catalog with demo products
func (a *Application) checkDemoProducts() {
	ctx := context.Background()
	existing, err := a.catalog.GetAll(ctx)
	if err != nil {
		zap.L().Error("failed to query products", zap.Error(err))
		return
	}
	if len(existing) > 0 {
		return
	}
	for i, d := range demoProducts {
		price := decimal.RequireFromString(d.price)
		p, err := a.catalog.Create(ctx, catalog.Draft{
			Name:        d.name,
			Description: d.description,
			Price:       &price,
			Category:    d.category,
		})
		if err != nil {
			zap.L().Error("failed to create demo product", zap.String("name", d.name), zap.Error(err))
			continue
		}
		// feature every other product so the storefront has something to show
		if i%2 == 0 {
			if _, err := a.catalog.ToggleFeatured(ctx, p.ID); err != nil {
				zap.L().Error("failed to feature demo product", zap.String("name", d.name), zap.Error(err))
			}
		}
		zap.L().Info("initialized demo product", zap.String("name", d.name))
	}
}
