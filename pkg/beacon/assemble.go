package beacon

// Assemble merges dataset and sources into a fresh payload.
// The first source to provide a key wins, the dataset always comes first.
// Values which are not acceptable scalars are skipped silently.
func Assemble(dataset Fields, sources ...Fields) Fields {
	payload := Fields{}

	merge := func(source Fields) {
		for k, v := range source {
			if _, ok := payload[k]; ok {
				continue
			}
			if !Scalar(v) {
				continue
			}
			payload[k] = v
		}
	}

	merge(dataset)
	for _, source := range sources {
		merge(source)
	}

	return payload
}
