package config

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, dbPath string) *Repository {
	return &Repository{
		backend: backend,
		dbPath:  dbPath,
	}
}

// NewRouteTableForTest creates a RouteTable config for testing purposes
func NewRouteTableForTest(path string) *RouteTable {
	return &RouteTable{path: path}
}
