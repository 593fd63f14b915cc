package domain

import "sort"

// Store is a destination registration owned by the integration plugin.
// Read-only from this service.
type Store struct {
	URL                string  `json:"url"`
	Status             bool    `json:"status"`
	ConsumerKey        string  `json:"consumer_key"`
	ConsumerSecret     string  `json:"consumer_secret"`
	ExcludeCategories  []int64 `json:"exclude_categories_products"`
	ExcludeTags        []int64 `json:"exclude_tags_products"`
	ExcludeDescription bool    `json:"exclude_term_description"`
}

func (s Store) ExcludesCategory(id int64) bool {
	return containsID(s.ExcludeCategories, id)
}

// ResolveStores keeps the selected urls that are registered and active,
// in selection order.
func ResolveStores(all map[string]Store, selected []string) []Store {
	out := make([]Store, 0, len(selected))
	seen := make(map[string]struct{}, len(selected))
	for _, u := range selected {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		st, ok := all[u]
		if !ok || !st.Status {
			continue
		}
		if st.URL == "" {
			st.URL = u
		}
		out = append(out, st)
	}
	return out
}

func StoreURLs(stores []Store) []string {
	urls := make([]string, 0, len(stores))
	for _, s := range stores {
		urls = append(urls, s.URL)
	}
	return urls
}

// Exclusions is the union of the excluded categories and tags of stores.
// A product excluded by any one store is skipped for all of them.
type Exclusions struct {
	Categories []int64
	Tags       []int64
}

func UnionExclusions(stores []Store) Exclusions {
	cats := map[int64]struct{}{}
	tags := map[int64]struct{}{}
	for _, s := range stores {
		for _, id := range s.ExcludeCategories {
			cats[id] = struct{}{}
		}
		for _, id := range s.ExcludeTags {
			tags[id] = struct{}{}
		}
	}
	return Exclusions{Categories: sortedKeys(cats), Tags: sortedKeys(tags)}
}

func (e Exclusions) Empty() bool {
	return len(e.Categories) == 0 && len(e.Tags) == 0
}

func (e Exclusions) Excludes(p ProductView) bool {
	for _, c := range p.CategoryIDs {
		if containsID(e.Categories, c) {
			return true
		}
	}
	for _, t := range p.TagIDs {
		if containsID(e.Tags, t) {
			return true
		}
	}
	return false
}

func containsID(xs []int64, id int64) bool {
	for _, x := range xs {
		if x == id {
			return true
		}
	}
	return false
}

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
