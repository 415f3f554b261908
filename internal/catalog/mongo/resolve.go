package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grimdex/internal/catalog"
)

func refProjection() *options.FindOptions {
	return options.Find().SetProjection(bson.M{"title": 1, "name": 1, "slug": 1})
}

// refDoc is the projection used when resolving references: only the
// fields needed to build a display Ref.
type refDoc struct {
	ID    string `bson:"_id"`
	Title string `bson:"title"`
	Name  string `bson:"name"`
	Slug  string `bson:"slug"`
}

func (d refDoc) ref() catalog.Ref {
	return catalog.Ref{Name: catalog.DisplayLabel(d.Title, d.Name), Slug: d.Slug}
}

// lookupRefs fetches the published documents for the given IDs from one
// collection and returns them keyed by ID.
func (s *Store) lookupRefs(ctx context.Context, coll string, ids []string) (map[string]catalog.Ref, error) {
	out := make(map[string]catalog.Ref, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	opts := refProjection()
	cur, err := s.db.Collection(coll).
		Find(ctx, published(bson.M{"_id": bson.M{"$in": ids}}), opts)
	if err != nil {
		return nil, err
	}

	var docs []refDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d.ref()
	}
	return out, nil
}

// resolveBooks fills the denormalized Authors/Era/Factions fields of the
// given books in place. References across the whole slice are collected
// first so each collection is queried once.
func (s *Store) resolveBooks(ctx context.Context, books []catalog.Book) error {
	if len(books) == 0 {
		return nil
	}

	authorIDs := make(map[string]bool)
	eraIDs := make(map[string]bool)
	factionIDs := make(map[string]bool)
	for i := range books {
		for _, id := range books[i].AuthorIDs {
			authorIDs[id] = true
		}
		if books[i].EraID != "" {
			eraIDs[books[i].EraID] = true
		}
		for _, id := range books[i].FactionIDs {
			factionIDs[id] = true
		}
	}

	authors, err := s.lookupRefs(ctx, collAuthors, keys(authorIDs))
	if err != nil {
		return err
	}
	eras, err := s.lookupRefs(ctx, collEras, keys(eraIDs))
	if err != nil {
		return err
	}
	factions, err := s.lookupRefs(ctx, collFactions, keys(factionIDs))
	if err != nil {
		return err
	}

	for i := range books {
		b := &books[i]
		b.Authors = nil
		for _, id := range b.AuthorIDs {
			if ref, ok := authors[id]; ok {
				b.Authors = append(b.Authors, ref)
			}
		}
		b.Era = nil
		if ref, ok := eras[b.EraID]; ok {
			era := ref
			b.Era = &era
		}
		b.Factions = nil
		for _, id := range b.FactionIDs {
			if ref, ok := factions[id]; ok {
				b.Factions = append(b.Factions, ref)
			}
		}
	}
	return nil
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
