package loader

// PartitionFiles splits files into at most workers contiguous shards of
// ceil(len(files)/workers) files each. Only the last shard may be shorter and
// no shard is empty, so fewer than workers shards come back when there are
// fewer files than workers.
func PartitionFiles(files []string, workers int) [][]string {
	if len(files) == 0 || workers < 1 {
		return nil
	}

	size := (len(files) + workers - 1) / workers
	shards := make([][]string, 0, (len(files)+size-1)/size)
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		shards = append(shards, files[start:end:end])
	}
	return shards
}
