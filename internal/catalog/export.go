package catalog

import (
	"context"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/talkincode/toughshop/internal/domain"
)

type productRow struct {
	ID          int64  `csv:"id"`
	Name        string `csv:"name"`
	Description string `csv:"description"`
	Price       string `csv:"price"`
	Category    string `csv:"category"`
	Image       string `csv:"image"`
	IsFeatured  bool   `csv:"is_featured"`
	CreatedAt   string `csv:"created_at"`
}

func toProductRows(products []domain.Product) []*productRow {
	rows := make([]*productRow, 0, len(products))
	for _, p := range products {
		image := p.Image
		if IsDataURI(image) {
			// inline payloads would swamp the sheet
			image = "(inline)"
		}
		rows = append(rows, &productRow{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.StringFixed(2),
			Category:    p.Category,
			Image:       image,
			IsFeatured:  p.IsFeatured,
			CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// ExportCSV writes the whole catalog as CSV with a header row
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	products, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	return errors.Wrap(gocsv.Marshal(toProductRows(products), w), "write products csv")
}
