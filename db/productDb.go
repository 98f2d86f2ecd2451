package db

import (
	"database/sql"
	"fmt"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"

	_ "github.com/lib/pq"
)

type ProductDocumentRepository interface {
	CreateProductDocument(doc *models.ProductDocument) error
	GetProductDocumentByUPC(upc string) ([]*models.ProductDocument, error)
	GetAllProductDocuments() ([]*models.ProductDocument, error)
	Close() error
}

type PostgresProductDocumentRepository struct {
	db *sql.DB
}

func NewPostgresProductDocumentRepository(databaseURL string) (*PostgresProductDocumentRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresProductDocumentRepository{db: db}, nil
}

func (r *PostgresProductDocumentRepository) CreateProductDocument(doc *models.ProductDocument) error {
	query := `
		INSERT INTO foodagent.product_documents (upc, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, createdAt`

	row := r.db.QueryRow(query, doc.UPC, doc.Title, doc.Content)

	if err := row.Scan(&doc.ID, &doc.CreatedAt); err != nil {
		return fmt.Errorf("failed to create product document: %w", err)
	}

	return nil
}

func (r *PostgresProductDocumentRepository) GetProductDocumentByUPC(upc string) ([]*models.ProductDocument, error) {
	query := `
		SELECT id, upc, title, content, createdAt
		FROM foodagent.product_documents
		WHERE upc = $1
		ORDER BY createdAt DESC`

	rows, err := r.db.Query(query, upc)
	if err != nil {
		return nil, fmt.Errorf("failed to query product documents: %w", err)
	}
	defer rows.Close()

	return scanProductDocuments(rows)
}

func (r *PostgresProductDocumentRepository) GetAllProductDocuments() ([]*models.ProductDocument, error) {
	query := `
		SELECT id, upc, title, content, createdAt
		FROM foodagent.product_documents
		ORDER BY id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query product documents: %w", err)
	}
	defer rows.Close()

	return scanProductDocuments(rows)
}

func (r *PostgresProductDocumentRepository) Close() error {
	return r.db.Close()
}

func scanProductDocuments(rows *sql.Rows) ([]*models.ProductDocument, error) {
	docs := make([]*models.ProductDocument, 0)
	for rows.Next() {
		doc := &models.ProductDocument{}
		err := rows.Scan(&doc.ID, &doc.UPC, &doc.Title, &doc.Content, &doc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over product documents: %w", err)
	}

	return docs, nil
}
