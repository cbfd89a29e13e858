package testing

import (
	"github.com/clearwealth/filevault/pkg/metadata"
)

// TaxReturnRecord builds a candidate document record for the given owner.
// ID and UploadedAt are left zero; the store assigns them at insert.
func TaxReturnRecord(ownerID string) metadata.FileRecord {
	return metadata.FileRecord{
		OwnerID:    ownerID,
		Name:       "tax return 2025.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  482_113,
		StorageKey: ownerID + "/1700000000000_tax_return_2025.pdf",
		Category:   metadata.CategoryDocument,
	}
}

// ReceiptImageRecord builds a candidate image record for the given owner.
func ReceiptImageRecord(ownerID string) metadata.FileRecord {
	return metadata.FileRecord{
		OwnerID:    ownerID,
		Name:       "receipt.png",
		MimeType:   "image/png",
		SizeBytes:  93_412,
		StorageKey: ownerID + "/1700000000001_receipt.png",
		Category:   metadata.CategoryImage,
	}
}

// BudgetSheetRecord builds a candidate spreadsheet record for the given
// owner.
func BudgetSheetRecord(ownerID string) metadata.FileRecord {
	return metadata.FileRecord{
		OwnerID:    ownerID,
		Name:       "budget.csv",
		MimeType:   "text/csv",
		SizeBytes:  10_240,
		StorageKey: ownerID + "/1700000000002_budget.csv",
		Category:   metadata.CategorySpreadsheet,
	}
}
