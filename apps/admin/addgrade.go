package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) addGrade(level int) error {
	g, err := cli.acadSvc.CreateGrade(context.Background(), level)
	if err != nil {
		return err
	}
	fmt.Printf("grade %d added (id %d)\n", g.Level, g.ID)
	return nil
}
