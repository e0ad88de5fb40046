package storage

import "database/sql"

type Transaction struct {
	ID          string
	Description string
	ValueCents  int64
	Type        string
	Date        string
}

type RecurringTransaction struct {
	ID          string
	Type        string
	Description string
	ValueCents  int64
	StartDate   string
	EndDate     sql.NullString
	ParentID    sql.NullString
}

type Override struct {
	ID          string
	ParentID    string
	Year        int64
	Month       int64
	Description string
	ValueCents  int64
	Type        string
	Date        string
}

type Balance struct {
	ID                  string
	Year                int64
	Month               int64
	IncomeCents         int64
	ExpenseCents        int64
	CreditCents         int64
	PartialBalanceCents int64
}
