package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rs/zerolog"

	klog "github.com/olehkaliuzhnyi/pay2phone/internal/log"
)

// CLIConfig configures the node command-line client.
type CLIConfig struct {
	Path string   // executable, "bitcoin-cli" by default
	Args []string // leading arguments such as "-regtest"
}

// CLIBackend runs the node's command-line client once per request and parses
// its standard output.
type CLIBackend struct {
	path   string
	args   []string
	logger zerolog.Logger
}

// NewCLIBackend returns a backend invoking the configured executable.
func NewCLIBackend(cfg CLIConfig) *CLIBackend {
	if cfg.Path == "" {
		cfg.Path = "bitcoin-cli"
	}
	if cfg.Args == nil {
		cfg.Args = []string{"-regtest"}
	}
	return &CLIBackend{
		path:   cfg.Path,
		args:   append([]string(nil), cfg.Args...),
		logger: klog.WithComponent("backend").With().Str("backend", "cli").Logger(),
	}
}

// SendToAddress runs "sendtoaddress <address> <amount>".
func (b *CLIBackend) SendToAddress(ctx context.Context, address, amount string) (*chainhash.Hash, error) {
	out, err := b.run(ctx, "sendtoaddress", address, amount)
	if err != nil {
		return nil, err
	}
	return parseTxID(out)
}

// GetBalance runs "getbalance <account>".
func (b *CLIBackend) GetBalance(ctx context.Context, account string) (string, error) {
	out, err := b.run(ctx, "getbalance", account)
	if err != nil {
		return "", err
	}
	return parseBalance(out)
}

func (b *CLIBackend) run(ctx context.Context, command string, params ...string) (string, error) {
	args := make([]string, 0, len(b.args)+1+len(params))
	args = append(args, b.args...)
	args = append(args, command)
	args = append(args, params...)

	cmd := exec.CommandContext(ctx, b.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	b.logger.Debug().
		Str("command", command).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("node cli call")

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrServiceFailed, command, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s exited with code %d: %s",
				ErrServiceFailed, command, exitErr.ExitCode(), truncate(strings.TrimSpace(stderr.String())))
		}
		return "", fmt.Errorf("%w: %s: %v", ErrServiceFailed, command, err)
	}
	return stdout.String(), nil
}
