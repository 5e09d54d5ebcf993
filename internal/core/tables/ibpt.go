// internal/core/tables/ibpt.go
package tables

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// AbrirIBPT conecta ao banco Postgres que guarda a tabela IBPT (ibpt_product).
func AbrirIBPT(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir conexão IBPT: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("erro ao conectar ao banco IBPT: %w", err)
	}
	return db, nil
}

// CarregarReferenciaIBPT usa os NCMs cadastrados na tabela IBPT como tabela de
// referência. Apenas produtos (tipo 0) entram; serviços NBS são ignorados.
func CarregarReferenciaIBPT(ctx context.Context, db *sql.DB) (*Referencia, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT codigo FROM ibpt_product WHERE tipo = '0' OR tipo IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar ibpt_product: %w", err)
	}
	defer rows.Close()

	var codigos []string
	for rows.Next() {
		var codigo string
		if err := rows.Scan(&codigo); err != nil {
			return nil, fmt.Errorf("erro ao ler código IBPT: %w", err)
		}
		codigos = append(codigos, codigo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao percorrer ibpt_product: %w", err)
	}

	ref := NovaReferencia(codigos)
	if ref.Tamanho() == 0 {
		return nil, ErrReferenciaVazia
	}
	return ref, nil
}
