package token

// expressionKeys are the keys whose value is parsed as an expression. Any
// other nested key has the rest of its line captured as free text.
var expressionKeys = map[string]bool{
	"abattement":            true,
	"alors":                 true,
	"applicable si":         true,
	"assiette":              true,
	"avec":                  true,
	"barème":                true,
	"commune":               true,
	"grille":                true,
	"intercommunalité":      true,
	"nom":                   true,
	"non applicable si":     true,
	"par défaut":            true,
	"par":                   true,
	"plafond":               true,
	"plancher":              true,
	"possibilités":          true,
	"produit":               true,
	"règle":                 true,
	"remplace":              true,
	"rend non applicable":   true,
	"sauf dans":             true,
	"si":                    true,
	"sinon":                 true,
	"somme":                 true,
	"taux":                  true,
	"toutes ces conditions": true,
	"tranches":              true,
	"une de ces conditions": true,
	"unité":                 true,
	"valeur":                true,
	"variations":            true,
}

// IsExpressionKey returns true if the value of key is an expression rather than free text.
func IsExpressionKey(key string) bool {
	return expressionKeys[key]
}

// UnitKey is the key whose value is a unit symbol read inline.
const UnitKey = "unité"
