package model

// Role is one of the three fixed roles of the store.
type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string `gorm:"type:varchar(100)" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

const (
	RoleAdmin    = "ADMIN"
	RoleCashier  = "CASHIER"
	RoleSupplier = "SUPPLIER"
)

var DefaultRoles = []Role{
	{Code: RoleAdmin, Name: "Administrator", Description: "Kelola produk, PO, supplier, user dan laporan"},
	{Code: RoleCashier, Name: "Kasir", Description: "Transaksi penjualan"},
	{Code: RoleSupplier, Name: "Supplier", Description: "Konfirmasi purchase order milik organisasinya"},
}

// NormalizeRole accepts the lowercase role names used by clients
// (admin|cashier|supplier) as well as the stored codes.
func NormalizeRole(raw string) (string, bool) {
	switch raw {
	case RoleAdmin, "admin":
		return RoleAdmin, true
	case RoleCashier, "cashier", "kasir":
		return RoleCashier, true
	case RoleSupplier, "supplier":
		return RoleSupplier, true
	}
	return "", false
}
