package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

func history(cfg *configFlags, conf *historyConfig) error {
	operationJournal, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer operationJournal.Close()

	entries, err := operationJournal.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No operations recorded")
		return nil
	}
	if conf.Limit > 0 && len(entries) > conf.Limit {
		entries = entries[:conf.Limit]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "CREATED\tOPERATION\tSTATE\tFEE\tTXID\tERROR")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\t%s\n",
			entry.CreatedAt.Local().Format(time.DateTime), entry.Operation, entry.State, entry.Fee, entry.TxID, entry.Error)
	}
	return writer.Flush()
}
