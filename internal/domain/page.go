package domain

// Page — конверт ответа списочных эндпоинтов.
// TotalPages/TotalCount заполняются только для запросов с пагинацией.
type Page[T any] struct {
	Items      []T  `json:"items"`
	TotalPages *int `json:"totalPages"`
	TotalCount *int `json:"totalCount"`
}

type ProductPage = Page[Product]
