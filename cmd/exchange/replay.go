package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/cryptonstudio/crypton-exchange-core/matching"
	"github.com/cryptonstudio/crypton-exchange-core/protocol"
)

// replay submits every client request recorded in the file and returns how many were read.
func replay(path string, submit func(matching.ClientRequest) error) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var n uint64
	processor := protocol.NewClientRequestProcessor(func(request matching.ClientRequest) error {
		n++
		return submit(request)
	})
	if err := processor.Process(bufio.NewReader(file)); err != nil {
		return n, fmt.Errorf("replay %s: %w", path, err)
	}
	return n, nil
}

// record writes count generated client requests to the file.
func record(path string, gen *generator, count int) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	w := bufio.NewWriter(file)
	frame := make([]byte, 0, protocol.ClientRequestSize)
	for range count {
		request := gen.next()
		frame = protocol.AppendClientRequest(frame[:0], &request)
		if _, err := w.Write(frame); err != nil {
			return err
		}
	}
	return w.Flush()
}
