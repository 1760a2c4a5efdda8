package allocation

// RoundToPack округляет вниз до кратного pack. Количества меньше minThreshold
// не округляются; если округление дало бы 0, остаётся исходное значение.
func RoundToPack(q, pack, minThreshold int) int {
	if q <= 0 {
		return 0
	}
	if pack <= 0 || q < minThreshold {
		return q
	}
	rounded := q / pack * pack
	if rounded == 0 {
		return q
	}
	return rounded
}

// StatusFor: Yes при доле >= yesRatio (или если выполнять нечего),
// No при нуле, иначе Partial.
func StatusFor(fulfillable, adjusted int, yesRatio float64) Status {
	if adjusted <= 0 {
		return StatusYes
	}
	if fulfillable <= 0 {
		return StatusNo
	}
	if float64(fulfillable)/float64(adjusted) >= yesRatio {
		return StatusYes
	}
	return StatusPartial
}
