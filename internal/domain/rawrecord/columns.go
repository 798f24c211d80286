package rawrecord

import (
	"fmt"
	"sort"
	"strings"
)

// Column names visible to rules. Statement attributes keep the bank's names, lower-cased.
const (
	ColDocKey          = "dockey"
	ColEntriesID       = "entriesid"
	ColDocValueDate    = "docvaluedate"
	ColEntryDbAmt      = "entrydbamt"
	ColEntryCrAmt      = "entrycramt"
	ColDocCurrency     = "doccurrency"
	ColDocSenderName   = "docsendername"
	ColDocSenderInn    = "docsenderinn"
	ColDocSenderAcctNo = "docsenderacctno"
	ColDocBenefName    = "docbenefname"
	ColDocBenefInn     = "docbenefinn"
	ColDocBenefAcctNo  = "docbenefacctno"
	ColDocCorAcct      = "doccoracct"
	ColDocInformation  = "docinformation"
	ColDocNomination   = "docnomination"

	ColAmount              = "amount"
	ColDirection           = "direction"
	ColCounteragentInn     = "counteragent_inn"
	ColCounteragentAccount = "counteragent_account"
	ColCounteragentName    = "counteragent_name"
)

var baseColumns = []string{
	ColDocKey, ColEntriesID, ColDocValueDate, ColEntryDbAmt, ColEntryCrAmt, ColDocCurrency,
	ColDocSenderName, ColDocSenderInn, ColDocSenderAcctNo,
	ColDocBenefName, ColDocBenefInn, ColDocBenefAcctNo,
	ColDocCorAcct, ColDocInformation, ColDocNomination,
	ColAmount, ColDirection, ColCounteragentInn, ColCounteragentAccount, ColCounteragentName,
}

// ColumnSet describes the columns a schema version exposes to rules
type ColumnSet struct {
	Version string
	Columns []string
}

// Has reports whether the column exists, case-insensitively
func (c ColumnSet) Has(column string) bool {
	column = strings.ToLower(column)
	for _, col := range c.Columns {
		if col == column {
			return true
		}
	}
	return false
}

// Extra lists the columns beyond the base set, stored in the record's extra attributes
func (c ColumnSet) Extra() []string {
	base := make(map[string]struct{}, len(baseColumns))
	for _, col := range baseColumns {
		base[col] = struct{}{}
	}
	var extra []string
	for _, col := range c.Columns {
		if _, ok := base[col]; !ok {
			extra = append(extra, col)
		}
	}
	return extra
}

var columnSets = map[string]ColumnSet{
	"v1": {Version: "v1", Columns: baseColumns},
	"v2": {Version: "v2", Columns: append(append([]string{}, baseColumns...), "docprodgroup", "docsrcccy", "docsrcamt", "docrecdate")},
}

// LookupColumnSet returns the column set for a schema version
func LookupColumnSet(version string) (ColumnSet, error) {
	set, ok := columnSets[strings.ToLower(version)]
	if !ok {
		return ColumnSet{}, fmt.Errorf("unknown schema version %q", version)
	}
	return set, nil
}

// SchemaVersions lists the known schema versions in order
func SchemaVersions() []string {
	versions := make([]string, 0, len(columnSets))
	for v := range columnSets {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}
