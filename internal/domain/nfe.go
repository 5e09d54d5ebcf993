// internal/domain/nfe.go
package domain

import "encoding/xml"

// NFeProc é o XML completo, com protocolo de autorização.
type NFeProc struct {
	XMLName xml.Name `xml:"nfeProc"`
	NFe     NFeXML   `xml:"NFe"`
	ProtNFe struct {
		InfProt struct {
			ChNFe string `xml:"chNFe"`
		} `xml:"infProt"`
	} `xml:"protNFe"`
}

// NFeXML é a nota sem protocolo (raiz <NFe>).
type NFeXML struct {
	XMLName xml.Name `xml:"NFe"`
	InfNFe  struct {
		ID  string `xml:"Id,attr"`
		Ide struct {
			NNF   string `xml:"nNF"`
			NatOp string `xml:"natOp"`
		} `xml:"ide"`
		Emit struct {
			XNome string `xml:"xNome"`
		} `xml:"emit"`
		Det []DetXML `xml:"det"`
	} `xml:"infNFe"`
}

// DetXML é um item (<det>) da nota.
type DetXML struct {
	Prod struct {
		CProd string `xml:"cProd"`
		XProd string `xml:"xProd"`
		NCM   string `xml:"NCM"`
		CFOP  string `xml:"CFOP"`
		VProd string `xml:"vProd"`
	} `xml:"prod"`
	Imposto struct {
		ICMS struct {
			Grupos []GrupoTributoXML `xml:",any"`
		} `xml:"ICMS"`
		PIS struct {
			Grupos []GrupoTributoXML `xml:",any"`
		} `xml:"PIS"`
		COFINS struct {
			Grupos []GrupoTributoXML `xml:",any"`
		} `xml:"COFINS"`
	} `xml:"imposto"`
}

// GrupoTributoXML captura qualquer grupo filho (ICMS00, ICMS20, ICMSSN101,
// PISAliq, PISNT, COFINSOutr...) lendo apenas os campos de valor.
type GrupoTributoXML struct {
	XMLName     xml.Name
	VICMS       string `xml:"vICMS"`
	VCredICMSSN string `xml:"vCredICMSSN"`
	VPIS        string `xml:"vPIS"`
	VCOFINS     string `xml:"vCOFINS"`
}
