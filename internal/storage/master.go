package storage

// Master data is owned by an external system and only read here.

type Machine struct {
	ID       int64  `json:"id" yaml:"id"`
	Code     string `json:"code" yaml:"code"`
	Name     string `json:"name" yaml:"name"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}

type RawMaterial struct {
	ID        int64   `json:"id" yaml:"id"`
	Code      string  `json:"code" yaml:"code"`
	Name      string  `json:"name" yaml:"name"`
	Grade     string  `json:"grade" yaml:"grade"`
	CostPerKg float64 `json:"cost_per_kg" yaml:"cost_per_kg"`
	IsActive  bool    `json:"is_active" yaml:"is_active"`
}

type Employee struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Role     string `json:"role" yaml:"role"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}

type ScrapReason struct {
	ID          int64  `json:"id" yaml:"id"`
	Code        string `json:"code" yaml:"code"`
	Description string `json:"description" yaml:"description"`
	IsAvoidable bool   `json:"is_avoidable" yaml:"is_avoidable"`
	IsActive    bool   `json:"is_active" yaml:"is_active"`
}

type FinishedGood struct {
	ID   int64  `json:"id" yaml:"id"`
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}
