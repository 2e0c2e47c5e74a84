package mysql

import (
	"collateral-loan-engine/internal/domain/access"
	"collateral-loan-engine/internal/domain/collateral"
	"collateral-loan-engine/internal/domain/event"
	"collateral-loan-engine/internal/domain/loan"
)

// Models lists every table owned by this adapter, in migration order.
func Models() []any {
	return []any{
		&loan.Loan{},
		&Sequence{},
		&collateral.Lock{},
		&access.Grant{},
		&access.Setting{},
		&event.Event{},
		&TokenBalance{},
		&CollectionItem{},
		&Note{},
	}
}
