/*
resolver.go - Resolving free-text request lines to inventory items

PURPOSE:
  Request lines arrive as free text ("A4 bond paper, ream"), not SKUs.
  Mapping a line to a stocked item is a best-effort strategy kept behind an
  interface so it can be swapped (say, for exact-SKU matching) without
  touching any of the ledger's transactional guarantees.

CONTRACT:
  Resolve returns (nil, nil) when nothing matches. The caller then treats
  the line as unavailable; it never guesses a substitute.
*/
package core

import (
	"context"
	"strings"
)

// ItemResolver maps a request line to an inventory item, best-effort.
type ItemResolver interface {
	Resolve(ctx context.Context, s Store, description, unitOfMeasure string) (*InventoryItem, error)
}

// SubstringResolver is the default strategy: an exact item-code match wins,
// otherwise the first active item whose description contains the requested
// text (case-insensitive). Matching unit of measure is preferred among
// substring candidates but not required.
type SubstringResolver struct{}

func (SubstringResolver) Resolve(ctx context.Context, s Store, description, unitOfMeasure string) (*InventoryItem, error) {
	wanted := strings.TrimSpace(description)
	if wanted == "" {
		return nil, nil
	}

	// A line that quotes the item code resolves exactly.
	if item, err := s.FindItemByCode(ctx, wanted); err != nil {
		return nil, err
	} else if item != nil && item.Active {
		return item, nil
	}

	candidates, err := s.SearchActiveItems(ctx, wanted)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	for i := range candidates {
		if strings.EqualFold(candidates[i].UnitOfMeasure, unitOfMeasure) {
			return &candidates[i], nil
		}
	}
	return &candidates[0], nil
}
