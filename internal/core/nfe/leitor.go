// internal/core/nfe/leitor.go
package nfe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// ErrNaoENFe indica um XML bem formado que não é uma NF-e.
var ErrNaoENFe = errors.New("XML inválido ou não é uma NF-e")

// Ler extrai a nota e seus itens de um XML de NF-e. Aceita o arquivo
// distribuído (<nfeProc>, com protocolo) ou a nota sem protocolo (<NFe>).
func Ler(r io.Reader) (domain.NotaFiscal, error) {
	dados, err := io.ReadAll(r)
	if err != nil {
		return domain.NotaFiscal{}, fmt.Errorf("erro ao ler dados do XML: %w", err)
	}

	var nfe domain.NFeXML
	var chave string

	var proc domain.NFeProc
	if errProc := decodificar(dados, &proc); errProc == nil {
		nfe = proc.NFe
		chave = proc.ProtNFe.InfProt.ChNFe
	} else if errNFe := decodificar(dados, &nfe); errNFe != nil {
		return domain.NotaFiscal{}, fmt.Errorf("falha ao fazer parse do XML: %w", errNFe)
	}

	if nfe.InfNFe.Ide.NNF == "" {
		return domain.NotaFiscal{}, ErrNaoENFe
	}
	if chave == "" {
		chave = strings.TrimPrefix(nfe.InfNFe.ID, "NFe")
	}

	nota := domain.NotaFiscal{
		Chave:      chave,
		Numero:     nfe.InfNFe.Ide.NNF,
		NaturezaOp: strings.TrimSpace(nfe.InfNFe.Ide.NatOp),
		Emitente:   strings.TrimSpace(nfe.InfNFe.Emit.XNome),
		Itens:      make([]domain.ItemFiscal, 0, len(nfe.InfNFe.Det)),
	}
	for _, det := range nfe.InfNFe.Det {
		nota.Itens = append(nota.Itens, domain.ItemFiscal{
			ChaveNFe:    nota.Chave,
			NumNota:     nota.Numero,
			NaturezaOp:  nota.NaturezaOp,
			CodProduto:  strings.TrimSpace(det.Prod.CProd),
			Produto:     strings.TrimSpace(det.Prod.XProd),
			NCM:         strings.TrimSpace(det.Prod.NCM),
			CFOP:        strings.TrimSpace(det.Prod.CFOP),
			Valor:       valor(det.Prod.VProd),
			VICMS:       valorICMS(det.Imposto.ICMS.Grupos),
			VPIS:        primeiroValor(det.Imposto.PIS.Grupos, func(g domain.GrupoTributoXML) string { return g.VPIS }),
			VCOFINS:     primeiroValor(det.Imposto.COFINS.Grupos, func(g domain.GrupoTributoXML) string { return g.VCOFINS }),
			TipoArquivo: "NFe",
		})
	}
	return nota, nil
}

func decodificar(dados []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(dados))
	dec.CharsetReader = charsetReader
	return dec.Decode(v)
}

// Algumas notas antigas declaram encoding="ISO-8859-1".
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "utf-8", "utf8", "":
		return input, nil
	}
	return nil, fmt.Errorf("encoding não suportado: %s", label)
}

// valorICMS usa o vICMS do grupo presente; no Simples Nacional (ICMSSN101)
// o crédito permitido faz o papel do imposto destacado.
func valorICMS(grupos []domain.GrupoTributoXML) float64 {
	for _, g := range grupos {
		if g.VICMS != "" {
			return valor(g.VICMS)
		}
	}
	for _, g := range grupos {
		if g.VCredICMSSN != "" {
			return valor(g.VCredICMSSN)
		}
	}
	return 0
}

func primeiroValor(grupos []domain.GrupoTributoXML, campo func(domain.GrupoTributoXML) string) float64 {
	for _, g := range grupos {
		if v := campo(g); v != "" {
			return valor(v)
		}
	}
	return 0
}

func valor(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
