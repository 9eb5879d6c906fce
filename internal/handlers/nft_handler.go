package handlers

import (
	"net/http"
	"strconv"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/services"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NFTHandler handles minting and the NFT cache endpoints.
type NFTHandler struct {
	Service     *services.NFTService
	MaxFileSize int64
}

func NewNFTHandler(service *services.NFTService, maxFileSize int64) *NFTHandler {
	return &NFTHandler{Service: service, MaxFileSize: maxFileSize}
}

// MintHandler pins the uploaded media and mints it. POST /nfts/mint
func (h *NFTHandler) MintHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	if !isMultipart(r) {
		writeError(w, r, apperr.New(apperr.ErrInvalidInput, "Expected a multipart form with a media file"))
		return
	}
	if err := parseMultipart(w, r, h.MaxFileSize); err != nil {
		writeError(w, r, err)
		return
	}

	in := services.MintInput{Tags: splitList(r.MultipartForm.Value["tags"])}
	in.Name, _ = formValue(r, "name")
	in.Description, _ = formValue(r, "description")
	in.MediaType, _ = formValue(r, "mediaType")
	if v, ok := formValue(r, "royaltyPercent"); ok && v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, r, apperr.New(apperr.ErrInvalidInput, "Invalid royalty percent"))
			return
		}
		in.RoyaltyPercent = pct
	}

	file, closer, err := singleUpload(r, "media", h.MaxFileSize)
	defer closer()
	if err != nil {
		writeError(w, r, err)
		return
	}

	nft, err := h.Service.MintNFT(r.Context(), claims.Address, in, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"creator": claims.Address,
		"tokenId": nft.TokenID,
	}).Info("NFT minted")
	writeJSON(w, http.StatusCreated, nft)
}

// ListNFTsHandler lists cached NFTs. GET /nfts?creator=&owner=&mediaType=&forSale=
func (h *NFTHandler) ListNFTsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.NFTFilter{
		Creator:   q.Get("creator"),
		Owner:     q.Get("owner"),
		MediaType: q.Get("mediaType"),
	}
	if v := q.Get("forSale"); v != "" {
		forSale, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, apperr.New(apperr.ErrInvalidInput, "forSale must be true or false"))
			return
		}
		filter.ForSale = &forSale
	}

	list, err := h.Service.ListNFTs(r.Context(), filter, pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NFTHandler) TrendingHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Trending(r.Context(), pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetNFTHandler returns one NFT and counts the view. GET /nfts/{tokenId}
func (h *NFTHandler) GetNFTHandler(w http.ResponseWriter, r *http.Request) {
	nft, err := h.Service.GetNFT(r.Context(), mux.Vars(r)["tokenId"], true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nft)
}

// RefreshHandler reconciles one token with chain. POST /nfts/{tokenId}/refresh
func (h *NFTHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	nft, err := h.Service.RefreshNFT(r.Context(), mux.Vars(r)["tokenId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nft)
}
