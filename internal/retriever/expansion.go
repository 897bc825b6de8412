package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/askpapers/askpapers/models"
)

// ExpandQuery rewrites a query into phrased variants to widen recall. The
// original query is always first.
func ExpandQuery(query string) []string {
	return []string{
		query,
		fmt.Sprintf("Find information about %s", query),
		fmt.Sprintf("What are the key aspects of %s", query),
		fmt.Sprintf("Explain %s in detail", query),
	}
}

// RetrieveExpanded runs Retrieve for every expansion variant and merges the
// hits, keeping the best score per chunk. At most k results come back, sorted
// by score descending with id as tie-break.
func (r *Retriever) RetrieveExpanded(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
	best := make(map[int64]models.RetrievedDocument)
	for _, q := range ExpandQuery(query) {
		docs, err := r.Retrieve(ctx, q, k)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if cur, ok := best[d.ID]; !ok || d.SimilarityScore > cur.SimilarityScore {
				best[d.ID] = d
			}
		}
	}
	merged := make([]models.RetrievedDocument, 0, len(best))
	for _, d := range best {
		merged = append(merged, d)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].SimilarityScore != merged[j].SimilarityScore {
			return merged[i].SimilarityScore > merged[j].SimilarityScore
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}
