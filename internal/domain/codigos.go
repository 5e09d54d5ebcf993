// internal/domain/codigos.go
package domain

import "strings"

// NormalizarCodigo remove os separadores usuais (ponto, hífen, barra, espaços)
// de um NCM ou CFOP. Se sobrar qualquer caractere não numérico o código é
// considerado malformado e o resultado é vazio.
func NormalizarCodigo(codigo string) string {
	limpo := strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '/', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, codigo)
	for _, r := range limpo {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return limpo
}
