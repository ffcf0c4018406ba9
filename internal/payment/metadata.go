package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cast"

	"github.com/kodamarket/koda/internal/errs"
)

// Metadata keys echoed back by the provider on checkout events.
const (
	MetaUserID     = "userId"
	MetaProductIDs = "productIds" // JSON array, cart checkout
	MetaProductID  = "productId"  // single id, older single-item checkouts
)

// MaxMetadataValue is the provider's limit on one metadata value.
const MaxMetadataValue = 500

// EncodeMetadata builds session metadata for a buyer and an ordered list of products.
// The list is never truncated: a value over the provider limit is a validation error.
func EncodeMetadata(buyerID string, productIDs []uuid.UUID) (map[string]string, error) {
	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = id.String()
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxMetadataValue {
		return nil, errs.Validation(fmt.Sprintf("too many items for one checkout (%d)", len(productIDs)))
	}
	return map[string]string{MetaUserID: buyerID, MetaProductIDs: string(raw)}, nil
}

// DecodeMetadata extracts the buyer and product ids from event metadata.
// The cart key wins over the legacy single key; a malformed cart list yields no ids.
// Entries that are not valid ids are dropped. An empty buyer means there is nothing to do.
func DecodeMetadata(md map[string]string) (buyerID string, productIDs []uuid.UUID) {
	buyerID = strings.TrimSpace(md[MetaUserID])
	if buyerID == "" {
		return "", nil
	}

	var raw []string
	if list := md[MetaProductIDs]; list != "" {
		var parsed []any
		if err := json.Unmarshal([]byte(list), &parsed); err == nil {
			for _, v := range parsed {
				raw = append(raw, cast.ToString(v))
			}
		}
	} else if single := md[MetaProductID]; single != "" {
		raw = append(raw, single)
	}

	for _, s := range raw {
		id, err := uuid.FromString(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		productIDs = append(productIDs, id)
	}
	return buyerID, productIDs
}
