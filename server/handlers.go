package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/blockberries/tokenberry/engine"
	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/registry"
	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/types"
	"github.com/blockberries/tokenberry/voting"
)

var errBadRequest = errors.New("bad request")

type tokenResponse struct {
	token.Settings
	TotalSupply  uint64 `json:"total_supply"`
	CurrentEpoch uint64 `json:"current_epoch"`
	Holders      int    `json:"holders"`
}

type balanceResponse struct {
	Token   types.Address `json:"token"`
	Account types.Address `json:"account"`
	Epoch   uint64        `json:"epoch"`
	Balance uint64        `json:"balance"`
}

type supplyResponse struct {
	Token  types.Address `json:"token"`
	Epoch  uint64        `json:"epoch"`
	Supply uint64        `json:"supply"`
}

type addressResponse struct {
	Variant types.Variant `json:"variant"`
	Symbol  string        `json:"symbol"`
	Address types.Address `json:"address"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Sugar().Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusOf maps an error to an HTTP status
func statusOf(err error) int {
	switch {
	case errors.Is(err, registry.ErrTokenNotFound),
		errors.Is(err, voting.ErrProposalNotFound),
		errors.Is(err, extension.ErrNotEnabled):
		return http.StatusNotFound

	case errors.Is(err, registry.ErrTokenExists),
		errors.Is(err, voting.ErrProposalExists),
		errors.Is(err, engine.ErrTimestampRegression),
		errors.Is(err, types.ErrAlreadyInitialized),
		errors.Is(err, types.ErrInvalidStateTransition),
		errors.Is(err, types.ErrEpochWindowViolation),
		errors.Is(err, extension.ErrAlreadyAllowed),
		errors.Is(err, extension.ErrAlreadyEnabled):
		return http.StatusConflict

	case errors.Is(err, engine.ErrHalted),
		errors.Is(err, engine.ErrJournalWrite),
		errors.Is(err, engine.ErrNotStarted):
		return http.StatusInternalServerError

	default:
		// anything else rejects the request itself
		return http.StatusBadRequest
	}
}

func parseAddress(c *gin.Context, param string) (types.Address, error) {
	a, err := types.HexToAddress(c.Param(param))
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %s: %v", errBadRequest, param, err)
	}
	return a, nil
}

// parseEpoch returns the epoch query parameter, or ok=false when absent
func parseEpoch(c *gin.Context) (epoch uint64, ok bool, err error) {
	raw, ok := c.GetQuery("epoch")
	if !ok {
		return 0, false, nil
	}
	epoch, err = strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: epoch %q", errBadRequest, raw)
	}
	return epoch, true, nil
}

// withToken runs fn on the token at the :address parameter under the
// engine's read lock
func (s *Server) withToken(c *gin.Context, fn func(t *token.Token) error) error {
	addr, err := parseAddress(c, "address")
	if err != nil {
		return err
	}
	return s.engine.View(func(r *registry.Registry) error {
		t, err := r.Token(addr)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.GetStatus())
}

func (s *Server) computeAddress(c *gin.Context) {
	variant, err := types.ParseVariant(c.Query("variant"))
	if err != nil || !variant.IsTokenVariant() {
		s.fail(c, fmt.Errorf("%w: variant %q", errBadRequest, c.Query("variant")))
		return
	}
	symbol := c.Query("symbol")
	if symbol == "" {
		s.fail(c, fmt.Errorf("%w: symbol is required", errBadRequest))
		return
	}
	c.JSON(http.StatusOK, addressResponse{
		Variant: variant,
		Symbol:  symbol,
		Address: s.engine.ComputeTokenAddress(variant, symbol),
	})
}

func describe(t *token.Token) tokenResponse {
	return tokenResponse{
		Settings:     t.Settings(),
		TotalSupply:  t.TotalSupply(),
		CurrentEpoch: t.CurrentEpoch(),
		Holders:      len(t.Holders()),
	}
}

func (s *Server) listTokens(c *gin.Context) {
	var out []tokenResponse
	_ = s.engine.View(func(r *registry.Registry) error {
		toks := r.Tokens()
		out = make([]tokenResponse, len(toks))
		for i, t := range toks {
			out[i] = describe(t)
		}
		return nil
	})
	c.JSON(http.StatusOK, out)
}

func (s *Server) getToken(c *gin.Context) {
	var out tokenResponse
	err := s.withToken(c, func(t *token.Token) error {
		out = describe(t)
		return nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getBalance(c *gin.Context) {
	account, err := parseAddress(c, "account")
	if err != nil {
		s.fail(c, err)
		return
	}
	epoch, hasEpoch, err := parseEpoch(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	var out balanceResponse
	err = s.withToken(c, func(t *token.Token) error {
		out = balanceResponse{Token: t.Address(), Account: account}
		if !hasEpoch {
			out.Epoch = t.CurrentEpoch()
			out.Balance = t.BalanceOf(account)
			return nil
		}
		if err := requireTracked(t); err != nil {
			return err
		}
		out.Epoch = epoch
		out.Balance = t.BalanceAt(epoch, account)
		return nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getSupply(c *gin.Context) {
	epoch, hasEpoch, err := parseEpoch(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	var out supplyResponse
	err = s.withToken(c, func(t *token.Token) error {
		out = supplyResponse{Token: t.Address()}
		if !hasEpoch {
			out.Epoch = t.CurrentEpoch()
			out.Supply = t.TotalSupply()
			return nil
		}
		if err := requireTracked(t); err != nil {
			return err
		}
		out.Epoch = epoch
		out.Supply = t.TotalSupplyAt(epoch)
		return nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// requireTracked rejects historical queries on tokens without a ledger
func requireTracked(t *token.Token) error {
	if st := t.Settings().State; st != types.StateTracked {
		return fmt.Errorf("%w: token is %s, history requires %s",
			types.ErrInvalidStateTransition, st, types.StateTracked)
	}
	return nil
}

func (s *Server) votingExtension() (*voting.Extension, error) {
	v, ok := s.engine.Catalog().Voting()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not in the catalog", extension.ErrNotEnabled, voting.ID)
	}
	return v, nil
}

func (s *Server) listProposals(c *gin.Context) {
	v, err := s.votingExtension()
	if err != nil {
		s.fail(c, err)
		return
	}
	var out []voting.View
	err = s.withToken(c, func(t *token.Token) error {
		out, err = v.Views(t)
		return err
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getProposal(c *gin.Context) {
	v, err := s.votingExtension()
	if err != nil {
		s.fail(c, err)
		return
	}
	hash, err := types.HexToHash(c.Param("hash"))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: hash: %v", errBadRequest, err))
		return
	}
	var out voting.View
	err = s.withToken(c, func(t *token.Token) error {
		out, err = v.ViewOf(t, hash)
		return err
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) submitTx(c *gin.Context) {
	var tx engine.Tx
	if err := c.ShouldBindJSON(&tx); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	rcpt, err := s.engine.Apply(&tx)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rcpt)
}
