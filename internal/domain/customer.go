package domain

// CustomerSummary — минимальное представление клиента из внешнего customers API.
// Заказы хранят только CustomerID; остальные поля нужны оркестратору для ответа.
type CustomerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
