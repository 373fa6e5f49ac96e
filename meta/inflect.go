package meta

import "github.com/jinzhu/inflection"

// Inflection modes applied to table and column names to build aliases.
const (
	InflectionNone        = "none"
	InflectionCamelize    = "camelize"
	InflectionPluralize   = "pluralize"
	InflectionSingularize = "singularize"
	InflectionSnake       = "snake"
)

var inflectionModes = []any{
	InflectionNone,
	InflectionCamelize,
	InflectionPluralize,
	InflectionSingularize,
	InflectionSnake,
}

// Inflect applies mode to name. Unknown and empty modes leave name as is.
func Inflect(mode, name string) string {
	switch mode {
	case InflectionCamelize:
		return camelize(name)
	case InflectionPluralize:
		return inflection.Plural(name)
	case InflectionSingularize:
		return inflection.Singular(name)
	case InflectionSnake:
		return toSnake(name)
	default:
		return name
	}
}
