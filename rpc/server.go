package rpc

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo"
	"github.com/phoreproject/sentinel/indexer"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.New().WithField("module", "rpc")

const (
	// MaxAirdropLamports caps a single faucet request.
	MaxAirdropLamports = 10 * 1000000000

	defaultAlertLimit = 20
	maxAlertLimit     = 500
)

// Server serves the HTTP API of a node.
type Server struct {
	runtime   *ledger.Runtime
	programID ledger.Address
	alerts    *indexer.Database
	echo      *echo.Echo
}

// NewServer creates the API. alerts may be nil if the node does not index alerts.
func NewServer(runtime *ledger.Runtime, programID ledger.Address, alerts *indexer.Database) *Server {
	s := &Server{
		runtime:   runtime,
		programID: programID,
		alerts:    alerts,
		echo:      echo.New(),
	}
	s.echo.HideBanner = true
	s.echo.HTTPErrorHandler = errorHandler

	v1 := s.echo.Group("/v1")
	v1.POST("/transactions", s.submitTransaction)
	v1.POST("/airdrop", s.airdrop)
	v1.GET("/accounts/:address", s.getAccount)
	v1.GET("/records/:id", s.getRecord)
	v1.GET("/records/:id/proof", s.getRecordProof)
	v1.GET("/fraud", s.listAlerts)
	v1.GET("/fraud/:id", s.getAlert)
	v1.GET("/state", s.getState)

	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	log.WithField("addr", addr).Info("starting API server")
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = http.StatusText(code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}

	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, ErrorResponse{Message: msg}); err != nil {
		log.WithError(err).Error("failed to write error response")
	}
}

// statusFor maps a transaction failure to an HTTP status.
func statusFor(err error) int {
	switch errors.Cause(err) {
	case ledger.ErrInvalidSignature, ledger.ErrMissingSigner, ledger.ErrInvalidInstructionData, ledger.ErrNotEnoughAccounts,
		sentinel.ErrOversizeField, sentinel.ErrInvalidTransactionID, sentinel.ErrAddressMismatch:
		return http.StatusBadRequest
	case ledger.ErrDuplicateTransaction, ledger.ErrAccountAlreadyInUse, sentinel.ErrAddressCollision:
		return http.StatusConflict
	case ledger.ErrInsufficientFunds, sentinel.ErrFundingFailure:
		return http.StatusPaymentRequired
	case sentinel.ErrUnauthorized:
		return http.StatusForbidden
	case ledger.ErrUnknownProgram:
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) submitTransaction(c echo.Context) error {
	tx := new(ledger.Transaction)
	if err := c.Bind(tx); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid transaction")
	}

	receipt, err := s.runtime.Execute(c.Request().Context(), tx)
	if err != nil {
		resp := TransactionResponse{Receipt: receipt, Error: err.Error()}
		if code, ok := sentinel.ErrorCode(err); ok {
			resp.Code = code
		}
		log.WithError(err).WithField("signature", tx.ID()).Debug("transaction failed")
		return c.JSON(statusFor(err), resp)
	}

	return c.JSON(http.StatusOK, TransactionResponse{Receipt: receipt})
}

func (s *Server) airdrop(c echo.Context) error {
	req := new(AirdropRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid airdrop request")
	}
	if req.Lamports == 0 || req.Lamports > MaxAirdropLamports {
		return echo.NewHTTPError(http.StatusBadRequest, "lamports must be between 1 and "+strconv.FormatUint(MaxAirdropLamports, 10))
	}

	receipt, err := s.runtime.Airdrop(c.Request().Context(), req.Address, req.Lamports)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TransactionResponse{Receipt: receipt})
}

func (s *Server) getAccount(c echo.Context) error {
	addr, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid address")
	}
	a, err := s.runtime.GetAccount(addr)
	if err != nil {
		return err
	}
	if a == nil {
		return echo.NewHTTPError(http.StatusNotFound, "account not found")
	}
	return c.JSON(http.StatusOK, AccountResponse{Address: addr, Account: a})
}

func (s *Server) getRecord(c echo.Context) error {
	id := c.Param("id")
	record, addr, err := sentinel.LoadRecord(s.runtime, s.programID, id)
	if err != nil {
		return recordError(err)
	}
	a, err := s.runtime.GetAccount(addr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RecordResponse{Address: addr, Lamports: a.Lamports, Record: record})
}

func (s *Server) getRecordProof(c echo.Context) error {
	addr, _, err := sentinel.RecordAddress(s.programID, c.Param("id"))
	if err != nil {
		return recordError(err)
	}

	proof, err := s.runtime.Prove(addr)
	if errors.Cause(err) == ledger.ErrAccountNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	if err != nil {
		return err
	}
	if !proof.Account.InUse() || proof.Account.Owner != s.programID {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}

	return c.JSON(http.StatusOK, ProofResponse{
		Address:   addr,
		Account:   proof.Account,
		StateRoot: proof.StateRoot,
		Witness:   proof.Witness,
	})
}

func recordError(err error) error {
	switch errors.Cause(err) {
	case sentinel.ErrRecordNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case sentinel.ErrInvalidTransactionID, sentinel.ErrOversizeField:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func (s *Server) listAlerts(c echo.Context) error {
	if s.alerts == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "alert index is disabled")
	}

	if minScore := c.QueryParam("min_score"); minScore != "" {
		score, err := strconv.ParseUint(minScore, 10, 8)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid min_score")
		}
		alerts, err := s.alerts.AboveScore(uint8(score))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, AlertsResponse{Alerts: alerts})
	}

	limit := defaultAlertLimit
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 || n > maxAlertLimit {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	alerts, err := s.alerts.Latest(limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AlertsResponse{Alerts: alerts})
}

func (s *Server) getAlert(c echo.Context) error {
	if s.alerts == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "alert index is disabled")
	}
	alert, err := s.alerts.ByTransactionID(c.Param("id"))
	if errors.Cause(err) == indexer.ErrAlertNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alert)
}

func (s *Server) getState(c echo.Context) error {
	root, err := s.runtime.StateRoot()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StateResponse{
		Slot:      s.runtime.Slot(),
		StateRoot: root,
		ProgramID: s.programID,
	})
}
