package catalog

import "errors"

var (
	// ErrCatalogNotFound indicates no .docc directory exists at or below the input path.
	ErrCatalogNotFound = errors.New("documentation catalog not found")

	// ErrMultipleCatalogs indicates more than one .docc directory was found.
	ErrMultipleCatalogs = errors.New("multiple documentation catalogs found")

	// ErrMalformedSymbolGraph indicates a symbol graph file could not be decoded.
	ErrMalformedSymbolGraph = errors.New("malformed symbol graph")
)
