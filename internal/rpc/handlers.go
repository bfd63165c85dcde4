package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

func (s *Server) handleCreatePay2PhoneTransaction(req *Request) (interface{}, *Error) {
	var (
		inputParams  []InputParam
		outputParams []OutputParam
		lockTime     *uint32
	)
	if err := parseParams(req, 2, &inputParams, &outputParams, &lockTime); err != nil {
		return nil, err
	}

	inputs := make([]models.TxInput, 0, len(inputParams))
	for i, p := range inputParams {
		id, err := models.ParseTxID(p.TxID)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("input %d: %v", i, err)}
		}
		inputs = append(inputs, models.TxInput{TxID: id, Vout: p.Vout, Sequence: p.Sequence})
	}

	outputs := make([]models.TxOutput, 0, len(outputParams))
	for i, p := range outputParams {
		out, err := p.toOutput()
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("output %d: %v", i, err)}
		}
		outputs = append(outputs, out)
	}

	raw, err := s.svc.CreatePay2PhoneTransaction(inputs, outputs, lockTime)
	if err != nil {
		return nil, toRPCError(err)
	}
	return hex.EncodeToString(raw), nil
}

func (s *Server) handleGetPhonePubAddress(req *Request) (interface{}, *Error) {
	var phone string
	if err := parseParams(req, 1, &phone); err != nil {
		return nil, err
	}

	addr, err := s.svc.GetPhonePubAddress(phone)
	if err != nil {
		return nil, toRPCError(err)
	}
	return addr, nil
}

func (s *Server) handlePay2Phone(ctx context.Context, req *Request) (interface{}, *Error) {
	var (
		phone          string
		amount         json.Number
		idempotencyKey string
	)
	if err := parseParams(req, 2, &phone, &amount, &idempotencyKey); err != nil {
		return nil, err
	}

	receipt, err := s.svc.PayToPhone(ctx, phone, amount.String(), idempotencyKey)
	if err != nil {
		return nil, toRPCError(err)
	}
	return receipt.TxID, nil
}

func (s *Server) handleGetBalance(ctx context.Context, req *Request) (interface{}, *Error) {
	var account string
	if err := parseParams(req, 1, &account); err != nil {
		return nil, err
	}

	balance, err := s.svc.GetBalance(ctx, account)
	if err != nil {
		return nil, toRPCError(err)
	}
	return balance, nil
}

// toOutput converts an output descriptor into its typed variant.
func (p OutputParam) toOutput() (models.TxOutput, error) {
	set := 0
	for _, f := range []*string{p.Phone, p.Address, p.Data} {
		if f != nil {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of phone, address or data is required")
	}

	switch {
	case p.Phone != nil:
		if p.Amount == "" {
			return nil, fmt.Errorf("amount is required")
		}
		return models.PhoneOutput{Phone: *p.Phone, Amount: p.Amount}, nil
	case p.Address != nil:
		return models.AddressOutput{Address: *p.Address, Amount: p.Amount}, nil
	default:
		data, err := hex.DecodeString(*p.Data)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return models.ScriptDataOutput{Data: data}, nil
	}
}
