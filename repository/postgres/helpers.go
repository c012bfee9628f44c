package postgres

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/fastygo/tikshop/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var productColumns = []string{
	"id", "title", "price", "followers", "status", "description", "whatsapp_number",
	"likes", "videos", "bio", "main_image", "images", "views", "created_at", "updated_at",
}

// buildListQuery translates a catalog filter into a single SELECT with the
// predicates and ordering pushed down.
func buildListQuery(filter domain.ProductFilter) (string, []interface{}, error) {
	filter = filter.Normalize()

	q := psql.Select(productColumns...).From("products")
	if status := filter.StatusPredicate(); status != "" {
		q = q.Where(sq.Eq{"status": string(status)})
	}
	if filter.MaxPrice != nil {
		q = q.Where(sq.LtOrEq{"price": *filter.MaxPrice})
	}
	if filter.MinFollowers != nil {
		q = q.Where(sq.GtOrEq{"followers": *filter.MinFollowers})
	}
	return q.OrderBy(orderClause(filter.Sort)...).ToSql()
}

func orderClause(order domain.SortOrder) []string {
	switch order {
	case domain.SortOldest:
		return []string{"created_at ASC", "id ASC"}
	case domain.SortPriceAsc:
		return []string{"price ASC", "created_at DESC"}
	case domain.SortPriceDesc:
		return []string{"price DESC", "created_at DESC"}
	case domain.SortFollowersAsc:
		return []string{"followers ASC", "created_at DESC"}
	case domain.SortFollowersDesc:
		return []string{"followers DESC", "created_at DESC"}
	default:
		return []string{"created_at DESC", "id DESC"}
	}
}
