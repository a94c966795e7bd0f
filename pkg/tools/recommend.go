package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abasto-labs/tendero/pkg/affinity"
	"github.com/abasto-labs/tendero/pkg/catalog"
)

// GraphSource hands out the current co-purchase graph snapshot.
type GraphSource interface {
	Snapshot(ctx context.Context) (*affinity.Graph, error)
}

// NewRecommendProducts exposes the affinity recommender.
func NewRecommendProducts(source GraphSource) catalog.Tool {
	type params struct {
		Product string `json:"product"`
		TopN    int    `json:"top_n"`
	}
	return catalog.Tool{
		Name: "recommend_products",
		Description: "Recomienda productos que se compran junto con el producto " +
			"indicado, según el historial de tickets de la tienda.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"product": {Type: "string", Description: "Producto base para la recomendación."},
			"top_n":   {Type: "integer", Description: "Cuántos productos recomendar.", Default: 5},
		}, "product"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			p := params{TopN: 5}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			graph, err := source.Snapshot(ctx)
			if err != nil {
				return "", fmt.Errorf("load co-purchase graph: %w", err)
			}
			return graph.RecommendText(p.Product, p.TopN), nil
		},
	}
}
