package http

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
	"github.com/agora-labs/gatekeeper/log"
)

// LinkerHandler represent the httphandler for identity links and group
// configuration
type LinkerHandler struct {
	identityStore mvc.IdentityStore
	groupStore    mvc.GroupStore
	oracle        mvc.LedgerOracle
	reconciler    mvc.ReconcilerUsecase

	challengeMessage string

	logger log.Logger
}

// LinkRequest is the body of POST /link. The signature is a personal
// sign of the configured challenge message by the address being linked.
type LinkRequest struct {
	IdentityID string `json:"identity_id"`
	GroupID    string `json:"group_id"`
	Address    string `json:"address"`
	Signature  string `json:"signature"`
}

// LinkResponse reports the reconciliation outcome of a fresh link.
type LinkResponse struct {
	IdentityID string `json:"identity_id"`
	GroupID    string `json:"group_id"`
	Address    string `json:"address"`
	Outcome    string `json:"outcome"`
}

// JoinedRequest is the body of POST /joined.
type JoinedRequest struct {
	IdentityID string `json:"identity_id"`
	GroupID    string `json:"group_id"`
}

// StakeResponse is the presentational stake view of a linked identity.
type StakeResponse struct {
	Address      string `json:"address"`
	Token        string `json:"token"`
	Total        string `json:"total"`
	Locked       string `json:"locked"`
	Withdrawable string `json:"withdrawable"`
	Decimals     uint8  `json:"decimals"`
}

// GroupRequest is the body of PUT /groups. Thresholds are decimal
// strings in the smallest token unit, descending by rank.
type GroupRequest struct {
	GroupID              string   `json:"group_id"`
	PoolAddress          string   `json:"pool_address"`
	TokenAddress         string   `json:"token_address"`
	Thresholds           []string `json:"thresholds"`
	SweepIntervalSeconds int64    `json:"sweep_interval_seconds"`
}

// NewLinkerHandler will initialize the /link and /groups resources
// endpoint
func NewLinkerHandler(e *echo.Echo, config *domain.LinkerConfig, identityStore mvc.IdentityStore, groupStore mvc.GroupStore, oracle mvc.LedgerOracle, reconciler mvc.ReconcilerUsecase, logger log.Logger) {
	handler := &LinkerHandler{
		identityStore:    identityStore,
		groupStore:       groupStore,
		oracle:           oracle,
		reconciler:       reconciler,
		challengeMessage: config.ChallengeMessage,
		logger:           logger,
	}

	e.POST("/link", handler.Link)
	e.POST("/joined", handler.Joined)
	e.GET("/stake", handler.GetStake)

	e.PUT("/groups", handler.UpsertGroup)
	e.GET("/groups", handler.ListGroups)
	e.GET("/groups/:id", handler.GetGroup)
}

// Link verifies address ownership through the signed challenge, upserts
// the identity link and immediately reconciles the pair.
func (h *LinkerHandler) Link(c echo.Context) error {
	ctx := c.Request().Context()

	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: err.Error()})
	}
	if req.IdentityID == "" || req.GroupID == "" {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: "identity_id and group_id must be non-empty"})
	}

	address, err := domain.NormalizeAddress(req.Address)
	if err != nil {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: err.Error()})
	}

	recovered, err := recoverSigner(h.challengeMessage, req.Signature)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, domain.ResponseError{Message: domain.InvalidSignatureError{Err: err}.Error()})
	}
	if recovered != address {
		return c.JSON(http.StatusUnauthorized, domain.ResponseError{Message: "signature does not match the address being linked"})
	}

	if err := h.identityStore.LinkIdentity(ctx, req.IdentityID, address, req.GroupID); err != nil {
		return c.JSON(http.StatusInternalServerError, domain.ResponseError{Message: err.Error()})
	}

	outcome, err := h.reconciler.Reconcile(ctx, req.IdentityID, req.GroupID)
	if err != nil {
		// The link is durable; only this reconciliation attempt failed
		// and the sweep retries it.
		h.logger.Error("post-link reconciliation failed",
			zap.String("identity_id", req.IdentityID),
			zap.String("group_id", req.GroupID),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, domain.ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, LinkResponse{
		IdentityID: req.IdentityID,
		GroupID:    req.GroupID,
		Address:    address,
		Outcome:    string(outcome),
	})
}

// Joined records that the identity accepted its invite and is now a
// group member.
func (h *LinkerHandler) Joined(c echo.Context) error {
	ctx := c.Request().Context()

	var req JoinedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: err.Error()})
	}

	if err := h.identityStore.ConfirmJoin(ctx, req.IdentityID, req.GroupID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, domain.ResponseError{Message: "no link exists for this identity and group"})
		}
		return c.JSON(http.StatusInternalServerError, domain.ResponseError{Message: err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

// GetStake returns the linked identity's current stake in display form.
func (h *LinkerHandler) GetStake(c echo.Context) error {
	ctx := c.Request().Context()

	identityID := c.QueryParam("identity_id")
	groupID := c.QueryParam("group_id")
	if identityID == "" || groupID == "" {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: "identity_id and group_id must be non-empty"})
	}

	link, err := h.identityStore.ResolveIdentity(ctx, identityID, groupID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, domain.ResponseError{Message: "no link exists for this identity and group"})
		}
		return c.JSON(http.StatusInternalServerError, domain.ResponseError{Message: err.Error()})
	}

	snapshot, err := h.oracle.StakeSnapshot(ctx, groupID, link.Address)
	if err != nil {
		return c.JSON(http.StatusBadGateway, domain.ResponseError{Message: err.Error()})
	}

	decimals, err := h.oracle.Decimals(ctx, groupID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, domain.ResponseError{Message: err.Error()})
	}

	tokenName, err := h.oracle.TokenName(ctx, groupID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, domain.ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, StakeResponse{
		Address:      link.Address,
		Token:        tokenName,
		Total:        snapshot.Total.String(),
		Locked:       snapshot.Locked.String(),
		Withdrawable: snapshot.Withdrawable.String(),
		Decimals:     decimals,
	})
}

// UpsertGroup registers or updates a gated group. Cached thresholds are
// invalidated so the next reconciliation sees the new configuration.
func (h *LinkerHandler) UpsertGroup(c echo.Context) error {
	ctx := c.Request().Context()

	var req GroupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: err.Error()})
	}

	group, err := req.toDomain()
	if err != nil {
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: err.Error()})
	}

	if err := h.groupStore.UpsertGroup(ctx, group); err != nil {
		var rankErr domain.ThresholdsNotDescendingError
		var addrErr domain.InvalidAddressError
		if errors.As(err, &rankErr) || errors.As(err, &addrErr) {
			return c.JSON(http.StatusBadRequest, domain.ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, domain.ResponseError{Message: err.Error()})
	}

	h.oracle.InvalidateThresholds(group.ID)

	return c.NoContent(http.StatusNoContent)
}

func (h *LinkerHandler) ListGroups(c echo.Context) error {
	groups, err := h.groupStore.ListGroups(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, domain.ResponseError{Message: err.Error()})
	}

	responses := make([]GroupRequest, 0, len(groups))
	for _, group := range groups {
		responses = append(responses, groupResponse(group))
	}

	return c.JSON(http.StatusOK, responses)
}

func (h *LinkerHandler) GetGroup(c echo.Context) error {
	group, err := h.groupStore.GetGroup(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, domain.ResponseError{Message: "group is not registered"})
		}
		return c.JSON(http.StatusInternalServerError, domain.ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, groupResponse(group))
}

func (r GroupRequest) toDomain() (domain.Group, error) {
	thresholds := make([]*big.Int, 0, len(r.Thresholds))
	for _, value := range r.Thresholds {
		threshold, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return domain.Group{}, fmt.Errorf("malformed threshold value (%s)", value)
		}
		thresholds = append(thresholds, threshold)
	}

	return domain.Group{
		ID:            r.GroupID,
		PoolAddress:   r.PoolAddress,
		TokenAddress:  r.TokenAddress,
		Thresholds:    thresholds,
		SweepInterval: time.Duration(r.SweepIntervalSeconds) * time.Second,
	}, nil
}

func groupResponse(group domain.Group) GroupRequest {
	thresholds := make([]string, 0, len(group.Thresholds))
	for _, threshold := range group.Thresholds {
		thresholds = append(thresholds, threshold.String())
	}

	return GroupRequest{
		GroupID:              group.ID,
		PoolAddress:          group.PoolAddress,
		TokenAddress:         group.TokenAddress,
		Thresholds:           thresholds,
		SweepIntervalSeconds: int64(group.SweepInterval.Seconds()),
	}
}

// recoverSigner recovers the lowercase address that personal-signed the
// challenge message.
func recoverSigner(message, signatureHex string) (string, error) {
	signature, err := hexutil.Decode(signatureHex)
	if err != nil {
		return "", err
	}
	if len(signature) != crypto.SignatureLength {
		return "", errors.New("signature must be 65 bytes")
	}

	// Wallets produce V as 27/28; go-ethereum expects 0/1.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", err
	}

	return domain.NormalizeAddress(crypto.PubkeyToAddress(*pubKey).Hex())
}
