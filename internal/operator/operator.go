// Package operator runs the post-deploy actions of a Redash stage against AWS:
// launching the one-off create_db task and summarizing the deployed state.
package operator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lex00/redash-aws-go/internal/awsclient"
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/network"
)

// ErrAccountMismatch is returned when the credentials belong to another
// account than the configured one.
var ErrAccountMismatch = errors.New("caller account does not match configuration")

// Operator performs actions for one stage configuration.
type Operator struct {
	cfg     config.Config
	names   naming.Names
	clients *awsclient.Clients
	lookup  *awsclient.VPCLookup
}

// New returns an operator for cfg using clients.
func New(cfg config.Config, clients *awsclient.Clients) *Operator {
	return &Operator{
		cfg:     cfg,
		names:   naming.New(cfg.StageName),
		clients: clients,
		lookup:  &awsclient.VPCLookup{EC2: clients.EC2},
	}
}

// verifyAccount checks the caller account against the configured one and
// returns it. An empty configured account accepts any caller.
func (o *Operator) verifyAccount(ctx context.Context) (string, error) {
	account, err := awsclient.CallerAccount(ctx, o.clients.STS)
	if err != nil {
		return "", fmt.Errorf("resolving caller account: %w", err)
	}
	if o.cfg.AccountID != "" && account != o.cfg.AccountID {
		return account, fmt.Errorf("%w: caller %s, configured %s", ErrAccountMismatch, account, o.cfg.AccountID)
	}
	return account, nil
}

// resolveNetwork finds the stage network: the configured VPC, or the VPC the
// stack created, found by its Name tag.
func (o *Operator) resolveNetwork(ctx context.Context) (*network.Network, error) {
	var (
		desc *network.Description
		err  error
	)
	if o.cfg.VpcID != "" {
		desc, err = o.lookup.LookupVPC(ctx, o.cfg.VpcID)
	} else {
		desc, err = o.lookup.FindVPCByName(ctx, o.names.VPC())
	}
	if err != nil {
		return nil, err
	}

	n, err := network.FromDescription(desc)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().
		Str("vpc_id", desc.VpcID).
		Int("private_subnets", len(n.Private)).
		Msg("resolved network")
	return n, nil
}
