package services

import (
	"fmt"
	"strings"

	"keuangan/internal/core"
)

// Fixed reply texts. None of them carries error detail.
const (
	UnknownCommandText = "❓ Perintah tidak dikenal. Ketik /help untuk melihat perintah yang tersedia."
	DeleteUsageText    = "Gunakan: /delete [nomor]\nContoh: /delete 5\nLihat nomor transaksi dengan /list."
	StorageErrText     = "Maaf, saya tidak dapat mengakses data transaksi saat ini. Silakan coba lagi."
	GenericErrText     = "Maaf, saya mengalami masalah memproses pesan Anda. Silakan coba lagi."
	SlowDownText       = "⏳ Terlalu banyak pesan. Mohon tunggu sebentar sebelum mengirim lagi."
	EmptyLedgerText    = "Tidak ada transaksi yang tercatat dalam sistem."
	NotImageText       = "Silakan kirim file gambar (struk/nota) untuk diproses."

	NoCandidatesText      = "Saya tidak menemukan informasi keuangan dalam pesan Anda. Coba tulis seperti \"makan siang 25rb\" atau \"terima gaji 5jt\"."
	AllInvalidText        = "Saya menemukan transaksi tetapi jumlahnya tidak valid. Pastikan jumlah ditulis dengan jelas, misalnya Rp 25.000."
	ReceiptNoCandidates   = "Saya tidak dapat mengekstrak informasi keuangan dari gambar ini. Pastikan itu foto yang jelas dari struk atau nota."
	ReceiptAllInvalidText = "Saya menemukan transaksi potensial tetapi tidak dapat mengekstrak jumlah yang valid dari gambar."

	listLimit = 10
)

// StaticHelpText is sent when the AI cannot write the help message.
const StaticHelpText = `💰 *Bot Keuangan*

📝 *Catat transaksi* dengan pesan biasa:
• "makan siang 25rb"
• "terima gaji 5jt kemarin"
• "kopi 15rb, parkir 5rb"

📸 *Kirim foto struk* untuk dicatat otomatis.

🔍 *Tanya data keuangan*:
• "pengeluaran minggu ini"
• "5 transaksi terakhir"
• "bagaimana cara menghemat?"

🔧 *Perintah:*
• /total - ringkasan semua transaksi
• /list - 10 transaksi terbaru
• /delete [nomor] - hapus transaksi
• /report - laporan bulan ini
• /report [bulan] [tahun] atau /report YYYY-MM
• /help - pesan ini

💡 Format jumlah: Rp50.000, 50rb, 1jt`

func deletedText(id int) string {
	return fmt.Sprintf("✅ Transaksi #%d telah dihapus.", id)
}

func deleteNotFoundText(id int) string {
	return fmt.Sprintf("❌ Tidak dapat menemukan transaksi #%d. Gunakan /list untuk melihat transaksi yang tersedia.", id)
}

// recordedText is the confirmation after a successful append.
func recordedText(header string, txs []core.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d transaksi:\n\n", header, len(txs))
	for i, tx := range txs {
		fmt.Fprintf(&b, "%d. %s - %s\n   %s\n   Tanggal: %s\n\n", i+1, tx.Amount.Rupiah(), tx.Category, tx.Description, tx.Date)
	}
	return strings.TrimRight(b.String(), "\n")
}
