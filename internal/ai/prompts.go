package ai

import (
	"fmt"
	"strings"

	"keuangan/internal/clock"
	"keuangan/internal/core"
)

const jsonOnly = `Kembalikan HANYA JSON mentah yang valid.
Jangan bungkus dengan code fence atau Markdown.`

func categoryList(cats []core.Category) string {
	var b strings.Builder
	for _, c := range cats {
		fmt.Fprintf(&b, "- %q\n", string(c))
	}
	return b.String()
}

func textExtractionPrompt(message string, now clock.Info) string {
	return fmt.Sprintf(`%s

Anda adalah asisten keuangan yang mengekstrak transaksi dari pesan pengguna dalam Bahasa Indonesia.

Untuk setiap transaksi tentukan:
- amount: angka dalam Rupiah, positif untuk pendapatan, negatif untuk pengeluaran
- category: HANYA salah satu kategori di bawah
- description: deskripsi singkat
- date: YYYY-MM-DD; gunakan tanggal hari ini jika tidak disebutkan, hitung "kemarin" atau "minggu lalu" dari tanggal hari ini

KATEGORI PENDAPATAN (amount positif):
%s
KATEGORI PENGELUARAN (amount negatif):
%s
Jika tidak ada yang cocok gunakan %q.
Satu pesan bisa berisi beberapa transaksi.
Format jumlah yang umum: Rp 50.000, Rp50000, 50rb, 50ribu, 50k, 1jt, 1juta, 1.000.000.

Keluaran berupa array JSON:
[{"amount": -25000, "category": "Makanan", "description": "makan siang", "date": "YYYY-MM-DD"}]
Jika tidak ada transaksi, kembalikan [].
%s

Pesan pengguna: %q`,
		now.PromptContext(),
		categoryList(core.IncomeCategories),
		categoryList(core.ExpenseCategories),
		string(core.CategoryOther),
		jsonOnly,
		message)
}

func imageExtractionPrompt(now clock.Info) string {
	return fmt.Sprintf(`%s

Anda adalah asisten keuangan yang membaca gambar struk atau nota belanja.

Ekstrak transaksi yang terlihat:
- amount: selalu negatif (pengeluaran) dalam Rupiah; utamakan total struk
- category: HANYA salah satu kategori pengeluaran di bawah
- description: nama toko atau barang utama
- date: tanggal pada struk (YYYY-MM-DD), atau tanggal hari ini jika tidak terbaca

KATEGORI PENGELUARAN:
%s
Jika tidak ada yang cocok gunakan %q.

Keluaran berupa array JSON:
[{"amount": -45000, "category": "Makanan", "description": "Warung Sederhana", "date": "YYYY-MM-DD"}]
Jika gambar bukan struk, kembalikan [].
%s`,
		now.PromptContext(),
		categoryList(core.ExpenseCategories),
		string(core.CategoryOther),
		jsonOnly)
}

func intentPrompt(message string, now clock.Info) string {
	return fmt.Sprintf(`%s

Klasifikasikan maksud pesan pengguna untuk bot pencatat keuangan.

Jenis maksud:
- "NARRATION": pengguna menceritakan pemasukan atau pengeluaran yang harus dicatat
- "STRUCTURED_QUERY": pengguna meminta data tercatat yang bisa difilter (periode, kategori, jumlah terakhir)
- "OPEN_QUESTION": pertanyaan bebas tentang keuangan, saran, atau analisis
- "COMMAND": pengguna meminta perintah bot seperti bantuan atau hapus

Untuk STRUCTURED_QUERY isi filters:
- period: salah satu "today", "yesterday", "this_week", "last_week", "this_month", "last_month", "this_year", "month"
- month dan year: angka, hanya jika period "month"
- category: salah satu kategori yang dikenal jika disebut
- limit: jumlah transaksi terakhir jika diminta
- user_scope: "self" jika pengguna bertanya tentang transaksinya sendiri ("saya", "punyaku"), selain itu "all"

Kategori yang dikenal: %s

Keluaran berupa objek JSON:
{"kind": "STRUCTURED_QUERY", "confidence": 0.9, "filters": {"period": "this_week", "category": "Makanan"}}
confidence antara 0 dan 1.
%s

Pesan pengguna: %q`,
		now.PromptContext(),
		strings.Join(knownCategoryNames(), ", "),
		jsonOnly,
		message)
}

func knownCategoryNames() []string {
	out := make([]string, 0, len(core.IncomeCategories)+len(core.ExpenseCategories))
	for _, c := range core.IncomeCategories {
		out = append(out, string(c))
	}
	for _, c := range core.ExpenseCategories {
		out = append(out, string(c))
	}
	return out
}

func answerPrompt(question, financialContext string, now clock.Info) string {
	return fmt.Sprintf(`%s

Anda adalah asisten keuangan yang ramah. Jawab pertanyaan pengguna dengan data keuangan berikut sebagai konteks.

KONTEKS KEUANGAN:
%s

Aturan:
1. Gunakan Bahasa Indonesia yang ramah dan mudah dipahami
2. Gunakan angka dari konteks; jangan mengarang data
3. Jika pertanyaan di luar topik keuangan, arahkan kembali dengan sopan
4. Berikan saran praktis, bukan rekomendasi investasi spesifik
5. Jika data tidak cukup, katakan dengan jujur

Pertanyaan pengguna: %q`,
		now.PromptContext(), financialContext, question)
}

const helpPrompt = `Tulis pesan bantuan singkat dalam Bahasa Indonesia untuk bot WhatsApp pencatat keuangan bersama.
Jelaskan:
- mencatat transaksi dengan pesan biasa, contoh "makan siang 25rb" atau "terima gaji 5jt kemarin"
- mengirim foto struk untuk dicatat otomatis
- bertanya tentang data, contoh "pengeluaran minggu ini" atau "5 transaksi terakhir"
- perintah: /total, /list, /delete [nomor], /report, /report [bulan] [tahun], /help
- format jumlah: Rp50.000, 50rb, 1jt
Gunakan format WhatsApp (*tebal*) dan beberapa emoji. Maksimal 25 baris.`
