package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/filter"
	"github.com/veldtlabs/steward/form"
	"github.com/veldtlabs/steward/metric"
	"github.com/veldtlabs/steward/model"
	"github.com/veldtlabs/steward/resource"
)

// Book is the demo record type.
type Book struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Author      string    `db:"author"`
	Year        int64     `db:"year"`
	Price       string    `db:"price"`
	Published   bool      `db:"published"`
	PublishedAt time.Time `db:"published_at"`
}

func bookMapper() *datasource.Mapper[Book] {
	return datasource.MustMapper[Book](
		datasource.Field[Book]{Name: "id", Kind: datasource.KindUUID, PrimaryKey: true,
			Get: func(b *Book) any { return b.ID },
			Set: func(b *Book, v any) error { b.ID = v.(string); return nil }},
		datasource.Field[Book]{Name: "title", Kind: datasource.KindText,
			Get: func(b *Book) any { return b.Title },
			Set: func(b *Book, v any) error { b.Title = v.(string); return nil }},
		datasource.Field[Book]{Name: "author", Kind: datasource.KindText,
			Get: func(b *Book) any { return b.Author },
			Set: func(b *Book, v any) error { b.Author = v.(string); return nil }},
		datasource.Field[Book]{Name: "year", Kind: datasource.KindInteger,
			Get: func(b *Book) any { return b.Year },
			Set: func(b *Book, v any) error { b.Year = v.(int64); return nil }},
		datasource.Field[Book]{Name: "price", Kind: datasource.KindNumeric,
			Get: func(b *Book) any { return b.Price },
			Set: func(b *Book, v any) error { b.Price = v.(string); return nil }},
		datasource.Field[Book]{Name: "published", Kind: datasource.KindBool,
			Get: func(b *Book) any { return b.Published },
			Set: func(b *Book, v any) error { b.Published = v.(bool); return nil }},
		datasource.Field[Book]{Name: "published_at", Kind: datasource.KindDateTime,
			Get: func(b *Book) any { return b.PublishedAt },
			Set: func(b *Book, v any) error { b.PublishedAt = v.(time.Time); return nil }},
	)
}

func newBook() *Book {
	return &Book{ID: uuid.NewString(), PublishedAt: time.Now().UTC()}
}

func bookForm() form.Form {
	return form.New(
		&form.Field{Name: "title", Kind: form.Text, Required: true,
			Validators: []form.Validator{form.MaxLength(200)}},
		&form.Field{Name: "author", Kind: form.Text, Required: true},
		&form.Field{Name: "year", Kind: form.Integer},
		&form.Field{Name: "price", Kind: form.Text},
		&form.Field{Name: "published", Kind: form.Checkbox},
	)
}

// bookResource declares the demo resource with every filter and metric kind
// wired in.
func bookResource(src datasource.DataSource[Book]) *resource.Resource[Book] {
	return &resource.Resource[Book]{
		Source:     src,
		Mapper:     bookMapper(),
		Group:      "Library",
		Icon:       "book",
		Searchable: []string{"title", "author"},
		Sortable:   []string{"title", "author", "year"},
		Columns:    []string{"title", "author", "year", "price", "published"},
		NewForm:    bookForm,
		Filters: []filter.Filter{
			&filter.String{Ident: "author", Field: "author", LabelText: "Author"},
			&filter.Number{Ident: "year", Field: "year", LabelText: "Year", Kind: filter.IntegerKind},
			&filter.Boolean{Ident: "published", Field: "published", LabelText: "Published"},
		},
		Metrics: []metric.Metric{
			&metric.Func{SlugName: "total", LabelText: "Total books",
				ComputeFn: func(ctx context.Context, _ *http.Request) (metric.Result, error) {
					n, err := src.Count(ctx)
					if err != nil {
						return nil, err
					}
					return metric.Value{Amount: n}, nil
				}},
			&metric.Func{SlugName: "published-share", LabelText: "Published",
				ComputeFn: func(ctx context.Context, _ *http.Request) (metric.Result, error) {
					published, err := src.Filter(model.BoolPredicate{Field: "published", Value: true}).Count(ctx)
					if err != nil {
						return nil, err
					}
					total, err := src.Count(ctx)
					if err != nil {
						return nil, err
					}
					return metric.NewPartition(
						metric.PartitionEntry{Label: "Published", Value: float64(published)},
						metric.PartitionEntry{Label: "Draft", Value: float64(total - published)},
					), nil
				}},
			&metric.Func{SlugName: "catalog-goal", LabelText: "Catalog goal",
				ComputeFn: func(ctx context.Context, _ *http.Request) (metric.Result, error) {
					n, err := src.Count(ctx)
					if err != nil {
						return nil, err
					}
					return metric.Progress{Current: float64(n), Target: 500}, nil
				}},
		},
	}
}

// seedBooks fills the in-memory backend with demo data.
func seedBooks() []*Book {
	authors := []string{"Iris Verne", "Tomas Eco", "Ada Clarke", "Noor Rashid"}
	out := make([]*Book, 0, 40)
	for i := 0; i < 40; i++ {
		out = append(out, &Book{
			ID:          uuid.NewString(),
			Title:       fmt.Sprintf("Volume %02d", i+1),
			Author:      authors[i%len(authors)],
			Year:        int64(1990 + i),
			Price:       fmt.Sprintf("%d.50", 10+i%20),
			Published:   i%3 != 0,
			PublishedAt: time.Date(1990+i, time.March, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return out
}
