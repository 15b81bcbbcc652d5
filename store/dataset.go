/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log"
)

//go:embed dataset/*.json
var dataset embed.FS

// Dataset is the content bundled with the binary.
type Dataset struct {
	Dares   []Fields `json:"dares"`
	Riddles []Fields `json:"riddles"`
}

func LoadDataset() (Dataset, error) {
	var ds Dataset

	for _, name := range []string{"dares", "riddles"} {
		data, err := dataset.ReadFile("dataset/" + name + ".json")
		if err != nil {
			return Dataset{}, err
		}

		if err := json.Unmarshal(data, &ds); err != nil {
			return Dataset{}, fmt.Errorf("decode %s dataset: %w", name, err)
		}
	}

	return ds, nil
}

// SeedDataset fills the dares and riddles collections from the bundled
// dataset when they are empty. Collections that already hold documents are
// left alone, so admin deletions survive restarts.
func SeedDataset(ctx context.Context, s Store) error {
	ds, err := LoadDataset()
	if err != nil {
		return err
	}

	seed := []struct {
		collection string
		prefix     string
		docs       []Fields
	}{
		{"dares", "dare-", ds.Dares},
		{"riddles", "riddle-", ds.Riddles},
	}

	for _, c := range seed {
		existing, err := s.List(ctx, c.collection, "")
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}

		for _, f := range c.docs {
			if _, err := s.CreateWithID(ctx, c.collection, c.prefix+f.String("id"), f); err != nil {
				return err
			}
		}

		log.Printf("STORE: Seeded %d %s from bundled dataset", len(c.docs), c.collection)
	}

	return nil
}
