// Calcul compiles and evaluates rules written in a small French rule
// language: named rules, arithmetic with units, barèmes, conditions and
// situations overriding rules at evaluation time.
//
// Usage:
//
//	# Evaluate rules
//	calcul eval --rules paie/ salaire net
//
//	# Evaluate with overrides
//	calcul eval --rules paie/ --set "salaire brut = 3000 €/mois" net
//
//	# List the rules a result depends on
//	calcul traverse --rules paie/ net
//
//	# Check rules files
//	calcul lint paie/
//
//	# Re-evaluate when rules change, serving metrics
//	calcul eval --watch --rules paie/ --metrics-addr :9090 net
//
//	# Recorded evaluations
//	calcul history --since 24h net
package main

import "os"

func main() {
	os.Exit(Execute())
}
