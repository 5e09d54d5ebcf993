// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const jwtSecretPadrao = "troque-este-segredo-jwt-em-producao-com-32-bytes"

// AppConfig é a configuração do servidor e da CLI.
type AppConfig struct {
	Port     string
	LogLevel string

	JWTSecret         string
	JWTValidade       time.Duration
	FirestoreProject  string
	FirestoreDatabase string

	AliquotaIBS float64
	AliquotaCBS float64

	LegislacaoURL     string
	LegislacaoTimeout time.Duration
	LegislacaoOnline  bool
	// LegislacaoArquivo é uma cópia local (texto ou HTML) da lei, usada como fonte adicional.
	LegislacaoArquivo string

	RegrasJSONPath  string
	TIPIPath        string
	IBPTDatabaseURL string
	BuscaAproximada bool

	RelatorioTTL   time.Duration
	MaxUploadBytes int64

	// Capitulos substitui os capítulos permitidos por anexo ("VIII" -> ["33","34"]).
	Capitulos map[string][]string

	// Avisos acumulados durante a carga, para o chamador registrar no log
	// depois de criar o logger.
	Avisos []string
}

func padroes(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", jwtSecretPadrao)
	v.SetDefault("JWT_VALIDADE", "24h")
	v.SetDefault("FIRESTORE_PROJECT", "classifica-reforma")
	v.SetDefault("FIRESTORE_DATABASE", "classifica-reforma-db")
	v.SetDefault("ALIQUOTA_IBS", 0.177)
	v.SetDefault("ALIQUOTA_CBS", 0.09)
	v.SetDefault("LEGISLACAO_URL", "https://www.planalto.gov.br/ccivil_03/leis/lcp/lcp214.htm")
	v.SetDefault("LEGISLACAO_TIMEOUT", "15s")
	v.SetDefault("LEGISLACAO_ONLINE", false)
	v.SetDefault("LEGISLACAO_ARQUIVO", "")
	v.SetDefault("REGRAS_JSON_PATH", "")
	v.SetDefault("TIPI_PATH", "")
	v.SetDefault("IBPT_DATABASE_URL", "")
	v.SetDefault("BUSCA_APROXIMADA", false)
	v.SetDefault("RELATORIO_TTL", "30m")
	v.SetDefault("MAX_UPLOAD_BYTES", int64(32<<20))
	v.SetDefault("CAPITULOS_ANEXOS", "")
}

// Load lê .env (se existir), variáveis de ambiente e, opcionalmente, um
// arquivo de configuração. Variáveis de ambiente têm precedência sobre o arquivo.
func Load(arquivo string) (*AppConfig, error) {
	var avisos []string
	if err := godotenv.Load(); err != nil {
		avisos = append(avisos, "arquivo .env não encontrado, usando variáveis de ambiente e padrões")
	}

	v := viper.New()
	padroes(v)
	v.AutomaticEnv()

	if arquivo != "" {
		v.SetConfigFile(arquivo)
		if err := v.ReadInConfig(); err != nil {
			var naoEncontrado viper.ConfigFileNotFoundError
			if !errors.As(err, &naoEncontrado) {
				return nil, fmt.Errorf("erro ao ler configuração %s: %w", arquivo, err)
			}
		}
	}
	return fromViper(v, avisos)
}

func fromViper(v *viper.Viper, avisos []string) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:              v.GetString("PORT"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTValidade:       duracao(v, "JWT_VALIDADE", 24*time.Hour, &avisos),
		FirestoreProject:  v.GetString("FIRESTORE_PROJECT"),
		FirestoreDatabase: v.GetString("FIRESTORE_DATABASE"),
		AliquotaIBS:       v.GetFloat64("ALIQUOTA_IBS"),
		AliquotaCBS:       v.GetFloat64("ALIQUOTA_CBS"),
		LegislacaoURL:     v.GetString("LEGISLACAO_URL"),
		LegislacaoTimeout: duracao(v, "LEGISLACAO_TIMEOUT", 15*time.Second, &avisos),
		LegislacaoOnline:  v.GetBool("LEGISLACAO_ONLINE"),
		LegislacaoArquivo: v.GetString("LEGISLACAO_ARQUIVO"),
		RegrasJSONPath:    v.GetString("REGRAS_JSON_PATH"),
		TIPIPath:          v.GetString("TIPI_PATH"),
		IBPTDatabaseURL:   v.GetString("IBPT_DATABASE_URL"),
		BuscaAproximada:   v.GetBool("BUSCA_APROXIMADA"),
		RelatorioTTL:      duracao(v, "RELATORIO_TTL", 30*time.Minute, &avisos),
		MaxUploadBytes:    v.GetInt64("MAX_UPLOAD_BYTES"),
	}

	if cfg.JWTSecret == jwtSecretPadrao {
		avisos = append(avisos, "usando JWT_SECRET padrão inseguro; defina JWT_SECRET em produção")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET deve ter ao menos 32 bytes (tem %d)", len(cfg.JWTSecret))
	}
	if err := ValidarAliquotas(cfg.AliquotaIBS, cfg.AliquotaCBS); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		avisos = append(avisos, "MAX_UPLOAD_BYTES inválido, usando 32MB")
		cfg.MaxUploadBytes = 32 << 20
	}

	// Arquivo YAML: capitulos: {viii: ["33", "34"]}. Ambiente: CAPITULOS_ANEXOS="VIII=33,34;I=10".
	cfg.Capitulos = v.GetStringMapStringSlice("capitulos")
	if bruto := v.GetString("CAPITULOS_ANEXOS"); bruto != "" {
		capitulos, err := ParseCapitulos(bruto)
		if err != nil {
			return nil, err
		}
		if cfg.Capitulos == nil {
			cfg.Capitulos = make(map[string][]string)
		}
		for k, caps := range capitulos {
			cfg.Capitulos[k] = caps
		}
	}

	cfg.Avisos = avisos
	return cfg, nil
}

// ValidarAliquotas exige IBS e CBS em [0,1]. Zero é aceito.
func ValidarAliquotas(ibs, cbs float64) error {
	if !(ibs >= 0 && ibs <= 1) || !(cbs >= 0 && cbs <= 1) {
		return fmt.Errorf("alíquotas fora do intervalo [0,1]: IBS=%v CBS=%v", ibs, cbs)
	}
	return nil
}

// ParseCapitulos lê o formato "VIII=33,34,48,96;I=10,11".
func ParseCapitulos(s string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, grupo := range strings.Split(s, ";") {
		grupo = strings.TrimSpace(grupo)
		if grupo == "" {
			continue
		}
		anexo, lista, ok := strings.Cut(grupo, "=")
		if !ok || strings.TrimSpace(anexo) == "" {
			return nil, fmt.Errorf("CAPITULOS_ANEXOS inválido perto de %q: esperado ANEXO=cap,cap", grupo)
		}
		var caps []string
		for _, c := range strings.Split(lista, ",") {
			if c = strings.TrimSpace(c); c != "" {
				caps = append(caps, c)
			}
		}
		out[strings.TrimSpace(anexo)] = caps
	}
	return out, nil
}

func duracao(v *viper.Viper, chave string, padrao time.Duration, avisos *[]string) time.Duration {
	bruto := v.GetString(chave)
	d, err := time.ParseDuration(bruto)
	if err != nil || d <= 0 {
		*avisos = append(*avisos, fmt.Sprintf("valor inválido para %s (%q), usando %s", chave, bruto, padrao))
		return padrao
	}
	return d
}
