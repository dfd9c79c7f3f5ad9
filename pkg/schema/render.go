package schema

import (
	"strings"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// renderDDL produces a deterministic CREATE TABLE statement from a
// TableDef. Columns are already ordered by ordinal position (spec
// §4.3); this function does no reordering of its own so the rendering
// is a pure function of the connector's column order.
func renderDDL(def *models.TableDef) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(def.Name)
	b.WriteString(" (\n")
	for i, col := range def.Columns {
		b.WriteString("  ")
		b.WriteString(col.Name)
		b.WriteString(" ")
		b.WriteString(col.DataType)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(def.Columns)-1 {
			b.WriteString(",")
		}
		if col.Comment != "" {
			b.WriteString(" -- ")
			b.WriteString(col.Comment)
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}
