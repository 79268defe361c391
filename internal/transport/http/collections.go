package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Pynex/Marketplace/internal/app"
	"github.com/Pynex/Marketplace/internal/domain"
)

// CollectionCreator is the minimal interface needed to create a collection.
type CollectionCreator interface {
	CreateCollection(ctx context.Context, in app.CreateCollectionInput) (domain.Collection, error)
}

// CollectionLister is the minimal interface needed to browse the catalog.
type CollectionLister interface {
	ListCollections(ctx context.Context) ([]domain.Collection, error)
}

// HandleCollections returns an HTTP handler for creating and listing
// collections.
func HandleCollections(creator CollectionCreator, lister CollectionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			collections, err := lister.ListCollections(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]collectionResponse, 0, len(collections))
			for _, c := range collections {
				resp = append(resp, newCollectionResponse(c))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			var req createCollectionRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			c, err := creator.CreateCollection(r.Context(), app.CreateCollectionInput{
				Caller:       callerAddress(r),
				Name:         req.Name,
				Symbol:       req.Symbol,
				BaseURI:      req.BaseURI,
				UnitPrice:    req.UnitPrice,
				InitialStock: req.InitialStock,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newCollectionResponse(c))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// CollectionAPI is the surface the /collections/{id} subtree needs.
type CollectionAPI interface {
	GetAddressByID(ctx context.Context, id int64) (domain.Address, error)
	GetPrice(ctx context.Context, id int64) (int64, error)
	GetQuantity(ctx context.Context, id int64) (int64, error)
	GetOwnerByCollectionID(ctx context.Context, id int64) (domain.Address, error)
	Buy(ctx context.Context, in app.BuyInput) error
	RedeemVoucher(ctx context.Context, in app.RedeemVoucherInput) (domain.IssuedItem, error)
	GetItem(ctx context.Context, collectionID, tokenID int64) (domain.Address, string, error)
	SetApproval(ctx context.Context, caller domain.Address, collectionID int64, operator domain.Address, approved bool) error
}

// HandleCollectionTree routes requests under /collections/{id}.
func HandleCollectionTree(svc CollectionAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 || parts[0] != "collections" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id < 1 {
			writeError(w, http.StatusNotFound, codeUnknownCollection, "unknown collection id")
			return
		}

		switch {
		case len(parts) == 2 && r.Method == http.MethodGet:
			serveCollectionDetail(w, r, svc, id)
		case len(parts) == 3 && parts[2] == "buy" && r.Method == http.MethodPost:
			serveBuy(w, r, svc, id)
		case len(parts) == 3 && parts[2] == "redeem" && r.Method == http.MethodPost:
			serveRedeem(w, r, svc, id)
		case len(parts) == 3 && parts[2] == "approval" && r.Method == http.MethodPost:
			serveApproval(w, r, svc, id)
		case len(parts) == 4 && parts[2] == "items" && r.Method == http.MethodGet:
			tokenID, err := strconv.ParseInt(parts[3], 10, 64)
			if err != nil || tokenID < 0 {
				writeError(w, http.StatusNotFound, codeItemNotFound, "item not found")
				return
			}
			serveItem(w, r, svc, id, tokenID)
		case len(parts) == 2 || len(parts) == 3 || len(parts) == 4:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func serveCollectionDetail(w http.ResponseWriter, r *http.Request, svc CollectionAPI, id int64) {
	ctx := r.Context()
	issuer, err := svc.GetAddressByID(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	price, err := svc.GetPrice(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	quantity, err := svc.GetQuantity(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	owner, err := svc.GetOwnerByCollectionID(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := collectionDetailResponse{
		ID:              id,
		IssuerAddress:   issuer.String(),
		UnitPrice:       price,
		QuantityInStock: quantity,
		OwnerAddress:    owner.String(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func serveItem(w http.ResponseWriter, r *http.Request, svc CollectionAPI, id, tokenID int64) {
	owner, uri, err := svc.GetItem(r.Context(), id, tokenID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := itemResponse{
		CollectionID: id,
		TokenID:      tokenID,
		OwnerAddress: owner.String(),
		URI:          uri,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type createCollectionRequest struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	BaseURI      string `json:"base_uri"`
	UnitPrice    int64  `json:"unit_price"`
	InitialStock int64  `json:"initial_stock"`
}

type collectionResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	OwnerAddress    string    `json:"owner_address"`
	BaseURI         string    `json:"base_uri"`
	UnitPrice       int64     `json:"unit_price"`
	QuantityInStock int64     `json:"quantity_in_stock"`
	IssuerAddress   string    `json:"issuer_address"`
	CreatedAt       time.Time `json:"created_at"`
}

func newCollectionResponse(c domain.Collection) collectionResponse {
	return collectionResponse{
		ID:              c.ID,
		Name:            c.Name,
		Symbol:          c.Symbol,
		OwnerAddress:    c.OwnerAddress.String(),
		BaseURI:         c.BaseURI,
		UnitPrice:       c.UnitPrice,
		QuantityInStock: c.QuantityInStock,
		IssuerAddress:   c.IssuerAddress.String(),
		CreatedAt:       c.CreatedAt,
	}
}

type collectionDetailResponse struct {
	ID              int64  `json:"id"`
	IssuerAddress   string `json:"issuer_address"`
	UnitPrice       int64  `json:"unit_price"`
	QuantityInStock int64  `json:"quantity_in_stock"`
	OwnerAddress    string `json:"owner_address"`
}

type itemResponse struct {
	CollectionID int64  `json:"collection_id"`
	TokenID      int64  `json:"token_id"`
	OwnerAddress string `json:"owner_address"`
	URI          string `json:"uri"`
}
